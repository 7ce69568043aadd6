package model

// OutcomeStatus is the terminal status of one detector call
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeExhausted OutcomeStatus = "exhausted"
)

// ServiceOutcome is the per-detector result produced by the coordinator.
// FinalStatus is true exactly once the detector's routine has returned,
// for both success and exhaustion; the outcome is never mutated after
// that point.
type ServiceOutcome struct {
	Status      OutcomeStatus        `json:"status"`
	FinalStatus bool                 `json:"final_status"`
	Result      []SuspiciousSequence `json:"result,omitempty"`
	Error       string               `json:"error,omitempty"`
	RetryCount  int                  `json:"retry_count"`
}
