package contact

import (
	"errors"
	"fmt"
)

// ValidationError reports a form field that failed client-side checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NetworkError means the backend could not be reached. Submissions that fail
// this way are queued locally and retried.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a response the backend produced but did not acknowledge.
// It is surfaced to the user. Queued entries are dropped on a 4xx and kept
// on a 5xx.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
}

// Retryable reports whether the backend failed without judging the content.
func (e *ServerError) Retryable() bool { return e.Status >= 500 }

// IsValidation reports whether err is a client-side form check failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNetwork reports whether the backend could not be reached.
func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}

// IsServer reports whether the backend answered without acknowledging.
func IsServer(err error) bool {
	var s *ServerError
	return errors.As(err, &s)
}

// isRejection reports whether the backend refused the content itself, so a
// resend cannot succeed.
func isRejection(err error) bool {
	var s *ServerError
	return errors.As(err, &s) && !s.Retryable()
}

func serverMessage(err error) string {
	var s *ServerError
	if errors.As(err, &s) {
		return s.Message
	}
	return err.Error()
}
