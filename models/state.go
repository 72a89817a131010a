package models

// WorkflowInput starts a recommendation workflow run.
type WorkflowInput struct {
	Profile InvestmentProfile `json:"preferences"`
	UserID  string            `json:"user_id"`
}

// WorkflowResult is the output of a workflow run. Recommendations is never nil.
type WorkflowResult struct {
	Recommendations []TradeCandidate `json:"recommendations"`
}

// WorkflowState is the graph's local state.
type WorkflowState struct {
	Profile         InvestmentProfile
	UserID          string
	MarketData      MarketSnapshot
	Recommendations []TradeCandidate
	Trace           *ReasoningTrace
}

func NewWorkflowState(in *WorkflowInput) *WorkflowState {
	s := &WorkflowState{Trace: NewReasoningTrace()}
	if in != nil {
		s.Profile = in.Profile
		s.UserID = in.UserID
	}
	return s
}
