package preference

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/FinSim/internal/llm"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/logger"
)

func reply(text string, err error) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return text, err
	})
}

func TestNormalizeParsesReply(t *testing.T) {
	var seen string
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		seen = prompt
		return "```json\n{\"risk_appetite\": \"Low\", \"investment_goals\": \"growth\", \"time_horizon\": \"medium\", \"investment_amount\": \"$5,000\", \"investment_style\": \"index\"}\n```", nil
	})

	p := NewNormalizer(gen, logger.Nop()).Normalize(context.Background(), "I want to invest $5000 safely.")
	assert.Contains(t, seen, "I want to invest $5000 safely.")
	assert.Equal(t, models.InvestmentProfile{
		RiskAppetite:     models.RiskLow,
		InvestmentGoals:  models.GoalGrowth,
		TimeHorizon:      models.HorizonMedium,
		InvestmentAmount: 5000,
		InvestmentStyle:  models.StyleIndex,
	}, p)
}

func TestNormalizeFallsBackToDefaults(t *testing.T) {
	cases := map[string]llm.Generator{
		"generator error": reply("", errors.New("boom")),
		"not json":        reply("I think you should buy index funds.", nil),
		"bad enum":        reply(`{"risk_appetite": "yolo", "investment_goals": "growth", "time_horizon": "medium", "investment_amount": 100, "investment_style": "index"}`, nil),
		"missing field":   reply(`{"risk_appetite": "low"}`, nil),
		"zero amount":     reply(`{"risk_appetite": "low", "investment_goals": "growth", "time_horizon": "medium", "investment_amount": 0, "investment_style": "index"}`, nil),
		"list":            reply(`[1, 2, 3]`, nil),
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			p := NewNormalizer(gen, logger.Nop()).Normalize(context.Background(), "")
			assert.Equal(t, models.DefaultProfile(), p)
		})
	}
}

func TestNormalizeAlwaysTotal(t *testing.T) {
	inputs := []string{"", " ", "{", "}{", "```json", "null", `{"investment_amount": "abc"}`}
	for _, in := range inputs {
		p := NewNormalizer(reply(in, nil), logger.Nop()).Normalize(context.Background(), in)
		require.True(t, p.Valid(), "input %q", in)
	}
}

func TestFromForm(t *testing.T) {
	p := FromForm(Form{
		RiskAppetite:     "HIGH",
		InvestmentGoals:  "income",
		TimeHorizon:      "forever",
		InvestmentAmount: "2,500.75",
		InvestmentStyle:  "",
	})
	assert.Equal(t, models.RiskHigh, p.RiskAppetite)
	assert.Equal(t, models.GoalIncome, p.InvestmentGoals)
	assert.Equal(t, models.HorizonMedium, p.TimeHorizon)
	assert.Equal(t, 2500.75, p.InvestmentAmount)
	assert.Equal(t, models.StyleIndex, p.InvestmentStyle)

	assert.Equal(t, models.DefaultProfile(), FromForm(Form{}))
}
