package models

// MarketRecord is one symbol of a market scan. Err is set when collection
// failed for the symbol; such records carry no price.
type MarketRecord struct {
	Symbol     string         `json:"symbol"`
	Company    string         `json:"company,omitempty"`
	Price      float64        `json:"price,omitempty"`
	Analysis   string         `json:"analysis,omitempty"`
	Financials map[string]any `json:"financials,omitempty"`
	CIK        string         `json:"cik,omitempty"`
	Err        string         `json:"error,omitempty"`
}

type MarketSnapshot []MarketRecord

// Symbols returns the symbols present in the snapshot, in order.
func (s MarketSnapshot) Symbols() []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		if r.Symbol != "" {
			out = append(out, r.Symbol)
		}
	}
	return out
}

// Price returns the snapshot price for symbol.
func (s MarketSnapshot) Price(symbol string) (float64, bool) {
	for _, r := range s {
		if r.Symbol == symbol && r.Err == "" && r.Price > 0 {
			return r.Price, true
		}
	}
	return 0, false
}

// Quote is a point-in-time price quote.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Open          float64 `json:"o"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Current       float64 `json:"c"`
	PreviousClose float64 `json:"pc"`
}
