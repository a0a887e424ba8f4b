package worklog

import "errors"

var (
	// ErrLogNotFound indicates the session log doesn't exist.
	ErrLogNotFound = errors.New("session log not found")
	// ErrTaskNotFound indicates the task doesn't exist in the catalog.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidHours indicates quantized hours fell outside (0, 24].
	ErrInvalidHours = errors.New("hours must be between 0 and 24 after conversion")
	// ErrExternalService indicates a timesheet collaborator failure.
	ErrExternalService = errors.New("external timesheet service error")
	// ErrInvalidInput indicates invalid lifecycle input.
	ErrInvalidInput = errors.New("invalid input")
)
