package models

import "fmt"

const (
	ActionBuy  = "Buy"
	ActionSell = "Sell"
	ActionHold = "Hold"

	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
)

var (
	TradeActions = []string{ActionBuy, ActionSell}
	Sentiments   = []string{SentimentPositive, SentimentNegative, SentimentNeutral}
)

// CandidateFields lists the keys a generated candidate must carry.
var CandidateFields = []string{"Symbol", "Company", "Action", "Quantity", "Reason", "Caution", "NewsSentiment", "Score"}

// TradeCandidate is a proposed action on one symbol.
type TradeCandidate struct {
	Symbol        string  `json:"Symbol"`
	Company       string  `json:"Company"`
	Action        string  `json:"Action"`
	Quantity      float64 `json:"Quantity"`
	CurrentPrice  float64 `json:"CurrentPrice"`
	TotalCost     float64 `json:"TotalCost"`
	Reason        string  `json:"Reason"`
	Caution       string  `json:"Caution"`
	NewsSentiment string  `json:"NewsSentiment"`
	Score         float64 `json:"Score"`
}

func (c TradeCandidate) Summary() string {
	return fmt.Sprintf("%s (%s)\n  - Action: %s\n  - Current Price: $%.2f\n  - Quantity: %g\n  - Total Cost: $%.2f\n  - Reason: %s\n  - Caution: %s\n  - News Sentiment: %s\n  - Score: %g\n",
		c.Company, c.Symbol, c.Action, c.CurrentPrice, c.Quantity, c.TotalCost, c.Reason, c.Caution, c.NewsSentiment, c.Score)
}

type RecommendationsKind int

const (
	RecommendationsEmpty RecommendationsKind = iota
	RecommendationsOk
)

func (k RecommendationsKind) String() string {
	if k == RecommendationsOk {
		return "ok"
	}
	return "empty"
}

// Recommendations is either Ok with candidates or Empty with a reason.
type Recommendations struct {
	Kind       RecommendationsKind `json:"kind"`
	Candidates []TradeCandidate    `json:"candidates,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}

// OkRecommendations returns Empty when c has no candidates.
func OkRecommendations(c []TradeCandidate) Recommendations {
	if len(c) == 0 {
		return EmptyRecommendations("no candidates")
	}
	return Recommendations{Kind: RecommendationsOk, Candidates: c}
}

func EmptyRecommendations(reason string) Recommendations {
	return Recommendations{Kind: RecommendationsEmpty, Reason: reason}
}

// Tradeable reports whether there is at least one candidate to act on.
func (r Recommendations) Tradeable() bool {
	return r.Kind == RecommendationsOk && len(r.Candidates) > 0
}

// Top returns the first candidate when the result is tradeable.
func (r Recommendations) Top() (TradeCandidate, bool) {
	if !r.Tradeable() {
		return TradeCandidate{}, false
	}
	return r.Candidates[0], true
}
