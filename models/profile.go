package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	GoalRetirement = "retirement"
	GoalGrowth     = "growth"
	GoalIncome     = "income"

	HorizonShort  = "short"
	HorizonMedium = "medium"
	HorizonLong   = "long"

	StyleValue  = "value"
	StyleGrowth = "growth"
	StyleIndex  = "index"

	DefaultInvestmentAmount = 10000.0
)

var (
	RiskAppetites    = []string{RiskLow, RiskMedium, RiskHigh}
	InvestmentGoals  = []string{GoalRetirement, GoalGrowth, GoalIncome}
	TimeHorizons     = []string{HorizonShort, HorizonMedium, HorizonLong}
	InvestmentStyles = []string{StyleValue, StyleGrowth, StyleIndex}
)

// InvestmentProfile is a normalized investor persona. After normalization
// every field is populated.
type InvestmentProfile struct {
	RiskAppetite          string  `json:"risk_appetite"`
	InvestmentGoals       string  `json:"investment_goals"`
	TimeHorizon           string  `json:"time_horizon"`
	InvestmentAmount      float64 `json:"investment_amount"`
	InvestmentStyle       string  `json:"investment_style"`
	AdditionalPreferences string  `json:"additional_preferences,omitempty"`
}

func DefaultProfile() InvestmentProfile {
	return InvestmentProfile{
		RiskAppetite:     RiskMedium,
		InvestmentGoals:  GoalGrowth,
		TimeHorizon:      HorizonMedium,
		InvestmentAmount: DefaultInvestmentAmount,
		InvestmentStyle:  StyleIndex,
	}
}

// Valid reports whether every categorical field is within its set and the
// amount is positive.
func (p InvestmentProfile) Valid() bool {
	return OneOf(p.RiskAppetite, RiskAppetites) &&
		OneOf(p.InvestmentGoals, InvestmentGoals) &&
		OneOf(p.TimeHorizon, TimeHorizons) &&
		OneOf(p.InvestmentStyle, InvestmentStyles) &&
		p.InvestmentAmount > 0
}

// ToMap renders the profile the way it is embedded in prompts.
func (p InvestmentProfile) ToMap() map[string]any {
	m := map[string]any{
		"risk_appetite":     p.RiskAppetite,
		"investment_goals":  p.InvestmentGoals,
		"time_horizon":      p.TimeHorizon,
		"investment_amount": p.InvestmentAmount,
		"investment_style":  p.InvestmentStyle,
	}
	if p.AdditionalPreferences != "" {
		m["additional_preferences"] = p.AdditionalPreferences
	}
	return m
}

func OneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// EncodePreferences returns a shareable URL-safe token for p.
func EncodePreferences(p InvestmentProfile) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode preferences: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodePreferences parses a token produced by EncodePreferences.
func DecodePreferences(token string) (InvestmentProfile, error) {
	var p InvestmentProfile
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return p, fmt.Errorf("decode preferences: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode preferences: %w", err)
	}
	return p, nil
}
