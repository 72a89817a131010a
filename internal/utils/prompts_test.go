package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptsRenderWithoutLeftoverPlaceholders(t *testing.T) {
	cases := map[string]map[string]string{
		"preference_parser": {"Text": "I want to invest $5000 safely."},
		"recommendation": {
			"Preferences": "{}", "Budget": "5000.00", "AllowedSymbols": "AAPL, MSFT",
			"AdditionalPreferences": "", "InvestmentStyle": "index", "InvestmentGoals": "growth", "RiskAppetite": "low",
		},
		"trade_validation":  {"Trade": "{}", "Preferences": "{}", "AllowedSymbols": "[]", "AdditionalPreferences": ""},
		"market_conditions": {},
		"strategist":        {"Preferences": "{}", "MarketData": "[]", "Symbols": "AAPL"},
		"market_analyst":    {"Company": "Apple", "Symbol": "AAPL", "Price": "1.00", "Financials": "{}", "News": "-"},
	}
	for name, vars := range cases {
		out, err := LoadPromptWithContext(name, vars)
		require.NoError(t, err, name)
		assert.False(t, strings.Contains(out, "{{."), "%s has unresolved placeholders", name)
	}
}

func TestLoadPromptMissing(t *testing.T) {
	_, err := LoadPrompt("does_not_exist")
	assert.Error(t, err)
	assert.Panics(t, func() { MustPrompt("does_not_exist", nil) })
}
