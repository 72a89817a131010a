// Package preference turns free text or form input into an InvestmentProfile.
package preference

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/internal/llm"
	"github.com/dyike/FinSim/internal/utils"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/extract"
	"github.com/dyike/FinSim/pkg/numeric"
)

type Normalizer struct {
	gen llm.Generator
	log zerolog.Logger
}

func NewNormalizer(gen llm.Generator, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		gen: gen,
		log: log.With().Str("component", "preference").Logger(),
	}
}

// Normalize always returns a fully populated profile. Any failure falls back
// to models.DefaultProfile.
func (n *Normalizer) Normalize(ctx context.Context, text string) models.InvestmentProfile {
	prompt, err := utils.LoadPromptWithContext("preference_parser", map[string]string{"Text": text})
	if err != nil {
		n.log.Error().Err(err).Msg("load preference prompt")
		return models.DefaultProfile()
	}

	reply, err := n.gen.Generate(ctx, prompt)
	if err != nil {
		n.log.Error().Err(err).Msg("preference generation failed")
		return models.DefaultProfile()
	}

	profile, err := parseProfile(reply)
	if err != nil {
		n.log.Error().Err(err).Str("response", reply).Msg("failed to parse preferences")
		return models.DefaultProfile()
	}
	return profile
}

func parseProfile(reply string) (models.InvestmentProfile, error) {
	m := extract.Structured(reply)
	if _, ok := m["error"]; ok {
		return models.InvestmentProfile{}, fmt.Errorf("response is not JSON")
	}
	if _, ok := m["analysis"]; ok && len(m) == 1 {
		return models.InvestmentProfile{}, fmt.Errorf("response is not JSON")
	}

	p := models.InvestmentProfile{
		RiskAppetite:          normalizeChoice(m["risk_appetite"]),
		InvestmentGoals:       normalizeChoice(m["investment_goals"]),
		TimeHorizon:           normalizeChoice(m["time_horizon"]),
		InvestmentAmount:      numeric.ToFloat(m["investment_amount"]),
		InvestmentStyle:       normalizeChoice(m["investment_style"]),
		AdditionalPreferences: extract.String(m, "additional_preferences", ""),
	}
	if !p.Valid() {
		return models.InvestmentProfile{}, fmt.Errorf("profile out of range: %+v", p)
	}
	return p, nil
}

func normalizeChoice(v any) string {
	s, _ := v.(string)
	return strings.ToLower(strings.TrimSpace(s))
}

// Form is the structured preference input. Empty or invalid fields take the
// default profile's value.
type Form struct {
	RiskAppetite          string
	InvestmentGoals       string
	TimeHorizon           string
	InvestmentAmount      any
	InvestmentStyle       string
	AdditionalPreferences string
}

func FromForm(f Form) models.InvestmentProfile {
	def := models.DefaultProfile()
	p := models.InvestmentProfile{
		RiskAppetite:          pick(f.RiskAppetite, models.RiskAppetites, def.RiskAppetite),
		InvestmentGoals:       pick(f.InvestmentGoals, models.InvestmentGoals, def.InvestmentGoals),
		TimeHorizon:           pick(f.TimeHorizon, models.TimeHorizons, def.TimeHorizon),
		InvestmentAmount:      numeric.ToFloat(f.InvestmentAmount),
		InvestmentStyle:       pick(f.InvestmentStyle, models.InvestmentStyles, def.InvestmentStyle),
		AdditionalPreferences: strings.TrimSpace(f.AdditionalPreferences),
	}
	if p.InvestmentAmount <= 0 {
		p.InvestmentAmount = def.InvestmentAmount
	}
	return p
}

func pick(v string, set []string, def string) string {
	v = normalizeChoice(v)
	if models.OneOf(v, set) {
		return v
	}
	return def
}
