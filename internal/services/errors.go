package services

import "errors"

var (
	// ErrValidation can be used with errors.Is to detect rejected input.
	ErrValidation = errors.New("validation failed")

	ErrAgentNotFound = errors.New("agent not found")
	ErrTaskNotFound  = errors.New("task not found")

	// ErrNotAssigned is returned when an agent reports on a task it does not hold.
	ErrNotAssigned = errors.New("task is not assigned to this agent")

	ErrAPIKeyNotFound = errors.New("api key not found")
	ErrInvalidAPIKey  = errors.New("invalid api key")
)
