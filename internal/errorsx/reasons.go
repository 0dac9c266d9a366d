// Package errorsx attaches machine-readable reason codes to errors.
package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonConfig     ReasonCode = "config"
	ReasonInference  ReasonCode = "inference"
	ReasonRetrieval  ReasonCode = "retrieval"
	ReasonStepBudget ReasonCode = "step_budget"
	ReasonCanceled   ReasonCode = "canceled"

	ReasonToolUnknown     ReasonCode = "tool_unknown"
	ReasonToolInvalidArgs ReasonCode = "tool_invalid_args"
	ReasonToolFailed      ReasonCode = "tool_failed"
	ReasonToolTimeout     ReasonCode = "tool_timeout"
)
