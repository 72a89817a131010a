// Package display renders recommendations, verdicts and account views for
// the terminal.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/FinSim/internal/portfolio"
	"github.com/dyike/FinSim/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1).
			Width(78)

	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	gainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	lossStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

func Title(s string) string { return titleStyle.Render(s) }

func Muted(s string) string { return mutedStyle.Render(s) }

func Warning(s string) string { return warningStyle.Render(s) }

// Money colours a signed amount.
func Money(v float64) string {
	s := fmt.Sprintf("$%.2f", v)
	switch {
	case v > 0:
		return gainStyle.Render("+" + s)
	case v < 0:
		return lossStyle.Render(s)
	default:
		return s
	}
}

func Profile(w io.Writer, p models.InvestmentProfile) {
	fmt.Fprintln(w, Title("Investment Profile"))
	body := fmt.Sprintf("Risk appetite:    %s\nInvestment goals: %s\nTime horizon:     %s\nAmount:           $%.2f\nStyle:            %s",
		p.RiskAppetite, p.InvestmentGoals, p.TimeHorizon, p.InvestmentAmount, p.InvestmentStyle)
	if p.AdditionalPreferences != "" {
		body += "\nAdditional:       " + p.AdditionalPreferences
	}
	fmt.Fprintln(w, cardStyle.Render(body))
}

// Recommendations prints each candidate as a card, or the reason the list
// is empty.
func Recommendations(w io.Writer, r models.Recommendations) {
	fmt.Fprintln(w, Title("Recommendations"))
	if !r.Tradeable() {
		reason := r.Reason
		if reason == "" {
			reason = "no candidates"
		}
		fmt.Fprintln(w, Warning("No usable recommendation: "+reason))
		return
	}
	for i, c := range r.Candidates {
		head := fmt.Sprintf("%d. %s %s (%s)  score %g", i+1, strings.ToUpper(c.Action), c.Symbol, c.Company, c.Score)
		body := fmt.Sprintf("%s\nQuantity %g @ $%.2f = $%.2f\nReason:    %s\nCaution:   %s\nSentiment: %s",
			head, c.Quantity, c.CurrentPrice, c.TotalCost, c.Reason, c.Caution, c.NewsSentiment)
		fmt.Fprintln(w, cardStyle.Render(body))
	}
}

func Trace(w io.Writer, t *models.ReasoningTrace) {
	steps := t.Steps()
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(w, Title("Reasoning"))
	for i, step := range steps {
		fmt.Fprintf(w, "%s %s\n", Muted(fmt.Sprintf("%2d.", i+1)), step)
	}
}

func Verdict(w io.Writer, v models.ValidationVerdict) {
	if v.IsValid {
		fmt.Fprintln(w, gainStyle.Render("Trade approved"))
	} else {
		fmt.Fprintln(w, lossStyle.Render("Trade not approved"))
	}
	fmt.Fprintln(w, cardStyle.Render(v.Explanation))
}

func Trade(w io.Writer, t models.Trade, balance float64) {
	fmt.Fprintf(w, "%s %g %s @ $%.2f for $%.2f\n", strings.ToUpper(t.Type), t.Quantity, t.Symbol, t.Price, t.Amount)
	fmt.Fprintf(w, "%s $%.2f\n", Muted("Balance:"), balance)
}

func Portfolio(w io.Writer, s portfolio.Summary) {
	fmt.Fprintln(w, Title("Portfolio"))
	if len(s.Lines) == 0 {
		fmt.Fprintln(w, Muted("No open positions."))
	}
	for _, l := range s.Lines {
		price := "n/a"
		if l.PriceKnown {
			price = fmt.Sprintf("$%.2f", l.CurrentPrice)
		}
		fmt.Fprintf(w, "%-6s %10.4f  avg $%9.2f  now %10s  value $%11.2f  %s\n",
			l.Symbol, l.Quantity, l.AvgBuyPrice(), price, l.CurrentValue, Money(l.UnrealizedPnL))
	}
	fmt.Fprintf(w, "\nCash $%.2f  Positions $%.2f  Net worth $%.2f\n", s.Cash, s.MarketValue, s.NetWorth())
	fmt.Fprintf(w, "Unrealized %s  Realized %s\n", Money(s.UnrealizedPnL), Money(s.RealizedPnL))
}

func Trades(w io.Writer, trades []models.Trade) {
	for _, t := range trades {
		fmt.Fprintf(w, "%s  %-4s %-6s %10.4f @ $%9.2f  $%11.2f\n",
			t.Timestamp.Format("2006-01-02 15:04"), t.Type, t.Symbol, t.Quantity, t.Price, t.Amount)
	}
}

func Leaderboard(w io.Writer, entries []models.LeaderboardEntry) {
	fmt.Fprintln(w, Title("Leaderboard"))
	for i, e := range entries {
		fmt.Fprintf(w, "%2d. %-20s $%14.2f  %s\n", i+1, e.Username, e.Balance, e.Badges)
	}
}

func PreferenceHistory(w io.Writer, history []models.PreferenceRecord) {
	for _, r := range history {
		p := r.Profile
		fmt.Fprintf(w, "%s  %-5s %s/%s/%s $%.2f %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Source,
			p.RiskAppetite, p.InvestmentGoals, p.TimeHorizon, p.InvestmentAmount, p.InvestmentStyle)
	}
}

// Mapping prints a generated analysis map with sorted top-level keys.
func Mapping(w io.Writer, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\n", Title(strings.ReplaceAll(k, "_", " ")))
		writeValue(w, m[k], "  ")
	}
}

func writeValue(w io.Writer, v any, indent string) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s%s:\n", indent, strings.ReplaceAll(k, "_", " "))
			writeValue(w, x[k], indent+"  ")
		}
	case []any:
		for _, item := range x {
			fmt.Fprintf(w, "%s- %v\n", indent, item)
		}
	default:
		fmt.Fprintf(w, "%s%v\n", indent, x)
	}
}

// MarkdownReport renders a recommendation run as a markdown document.
func MarkdownReport(p models.InvestmentProfile, r models.Recommendations, insights string, t *models.ReasoningTrace) string {
	var b strings.Builder
	b.WriteString("# Trade Recommendations\n\n## Profile\n\n")
	fmt.Fprintf(&b, "- Risk appetite: %s\n- Goal: %s\n- Horizon: %s\n- Amount: $%.2f\n- Style: %s\n",
		p.RiskAppetite, p.InvestmentGoals, p.TimeHorizon, p.InvestmentAmount, p.InvestmentStyle)

	b.WriteString("\n## Recommendations\n\n")
	if !r.Tradeable() {
		fmt.Fprintf(&b, "No usable recommendation: %s\n", r.Reason)
	} else {
		b.WriteString("| Symbol | Action | Quantity | Price | Total | Score | Sentiment |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, c := range r.Candidates {
			fmt.Fprintf(&b, "| %s | %s | %g | $%.2f | $%.2f | %g | %s |\n",
				c.Symbol, c.Action, c.Quantity, c.CurrentPrice, c.TotalCost, c.Score, c.NewsSentiment)
		}
		for _, c := range r.Candidates {
			fmt.Fprintf(&b, "\n### %s (%s)\n\n%s\n\n*Caution:* %s\n", c.Symbol, c.Company, c.Reason, c.Caution)
		}
	}

	if insights != "" {
		fmt.Fprintf(&b, "\n## Insights\n\n%s\n", insights)
	}
	if steps := t.Steps(); len(steps) > 0 {
		b.WriteString("\n## Reasoning\n\n")
		for i, s := range steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(s, "\n", " "))
		}
	}
	return b.String()
}
