package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	// Turn pipeline taxonomy. Only ErrValidation reaches the HTTP caller;
	// the others are recovered where they occur.
	ErrPlanParse         = errors.New("router response is not a valid plan")
	ErrToolInvocation    = errors.New("tool invocation failed")
	ErrAggregation       = errors.New("aggregation failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrMissingAttachment = errors.New("required attachment is missing")
	ErrToolUnavailable   = errors.New("tool is not configured")
)
