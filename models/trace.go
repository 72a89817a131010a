package models

import "fmt"

// ReasoningTrace is an append-only list of human-readable steps.
type ReasoningTrace struct {
	steps []string
}

func NewReasoningTrace() *ReasoningTrace {
	return &ReasoningTrace{}
}

func (t *ReasoningTrace) Add(step string) {
	if t == nil {
		return
	}
	t.steps = append(t.steps, step)
}

func (t *ReasoningTrace) Addf(format string, args ...any) {
	t.Add(fmt.Sprintf(format, args...))
}

// Steps returns a copy of the recorded steps.
func (t *ReasoningTrace) Steps() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.steps))
	copy(out, t.steps)
	return out
}

func (t *ReasoningTrace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.steps)
}
