package models

type Modifications struct {
	Quantity   string   `json:"quantity"`
	Timing     string   `json:"timing"`
	Conditions []string `json:"conditions"`
}

type RiskManagement struct {
	StopLoss       string `json:"stop_loss"`
	TakeProfit     string `json:"take_profit"`
	PositionSizing string `json:"position_sizing"`
}

type ExecutionPlan struct {
	EntryPoints    []string       `json:"entry_points"`
	ExitPoints     []string       `json:"exit_points"`
	Monitoring     []string       `json:"monitoring"`
	RiskManagement RiskManagement `json:"risk_management"`
}

// ValidationVerdict is the outcome of a single trade review.
type ValidationVerdict struct {
	IsValid        bool            `json:"is_valid"`
	Explanation    string          `json:"explanation"`
	Confidence     string          `json:"confidence,omitempty"`
	PrimaryReasons []string        `json:"primary_reasons,omitempty"`
	Concerns       []string        `json:"concerns,omitempty"`
	Modifications  Modifications   `json:"modifications"`
	Execution      ExecutionPlan   `json:"execution"`
	Trace          *ReasoningTrace `json:"-"`
}

func RejectedVerdict(explanation string, trace *ReasoningTrace) ValidationVerdict {
	return ValidationVerdict{IsValid: false, Explanation: explanation, Trace: trace}
}
