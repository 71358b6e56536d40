package alerts

import "errors"

// Domain errors for the alert lifecycle.
var (
	ErrValidation           = errors.New("incident and location are required")
	ErrSubmissionInProgress = errors.New("a submission is already being classified")
	ErrSubmissionAbandoned  = errors.New("submission abandoned")
	ErrAlertNotFound        = errors.New("alert not found")
)
