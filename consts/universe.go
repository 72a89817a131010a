package consts

// AllowedSymbols is the tradeable universe. Recommendations, trade
// validation and manual trades are restricted to it.
var AllowedSymbols = []string{
	"UNH", "TSLA", "QCOM", "ORCL", "NVDA", "NFLX", "MSFT", "META", "LLY", "JNJ",
	"INTC", "IBM", "GOOGL", "GM", "F", "CSCO", "AMZN", "AMD", "ADBE", "AAPL",
}

// ScanSymbols is the default market scan used by the workflow graph.
// It is intentionally not a subset of AllowedSymbols.
var ScanSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "META", "JPM", "WMT", "V",
}

var allowed = func() map[string]struct{} {
	m := make(map[string]struct{}, len(AllowedSymbols))
	for _, s := range AllowedSymbols {
		m[s] = struct{}{}
	}
	return m
}()

// IsAllowed reports whether symbol is in the tradeable universe.
func IsAllowed(symbol string) bool {
	_, ok := allowed[symbol]
	return ok
}

const (
	StartingBalance  = 100000.0
	FirstTradeBadge  = "First Trade"
	NoBadges         = "None"
	LeaderboardLimit = 10
	MaxCandidates    = 3
)
