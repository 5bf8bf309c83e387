package contracts

import "time"

// Phase identifies a pipeline phase.
//
// Pipeline flow:
//
//	Load → Decompose → Enrich → Aggregate → Report
type Phase string

const (
	PhaseLoad      Phase = "load"
	PhaseDecompose Phase = "decompose"
	PhaseEnrich    Phase = "enrich"
	PhaseAggregate Phase = "aggregate"
	PhaseReport    Phase = "report"
)

// AllPhases returns the pipeline phases in execution order
func AllPhases() []Phase {
	return []Phase{PhaseLoad, PhaseDecompose, PhaseEnrich, PhaseAggregate, PhaseReport}
}

// String returns the phase name
func (p Phase) String() string {
	return string(p)
}

// ErrorType classifies a structured pipeline error
type ErrorType string

const (
	ErrNoDataSource     ErrorType = "NO_DATA_SOURCE"
	ErrAPIFailure       ErrorType = "API_FAILURE"
	ErrFileNotFound     ErrorType = "FILE_NOT_FOUND"
	ErrParseError       ErrorType = "PARSE_ERROR"
	ErrValidationFailed ErrorType = "VALIDATION_FAILED"
	ErrUnknown          ErrorType = "UNKNOWN"
)

// PipelineError is a structured, non-fatal error collected during a
// run. Errors represent missing work (a fund with no holdings source,
// a failed API call); the affected item is excluded or left
// unresolved and the pipeline continues.
//
// Entries must stay safe to share externally: security identifiers
// only, never portfolio values.
type PipelineError struct {
	Phase     Phase     `json:"phase"`
	Type      ErrorType `json:"error_type"`
	ItemID    string    `json:"item_id,omitempty"`
	Message   string    `json:"message"`
	FixHint   string    `json:"fix_hint,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPipelineError builds a timestamped pipeline error
func NewPipelineError(phase Phase, errType ErrorType, itemID, message, fixHint string) PipelineError {
	return PipelineError{
		Phase:     phase,
		Type:      errType,
		ItemID:    itemID,
		Message:   message,
		FixHint:   fixHint,
		Timestamp: time.Now(),
	}
}
