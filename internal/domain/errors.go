package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// The backend client wraps these so the flow and handlers can classify
// failures without looking at transport details.
var (
	ErrTokenMissing = errors.New("token missing")
	ErrUnreachable  = errors.New("backend unreachable")
	ErrRejected     = errors.New("rejected by backend")
)

// RejectedError is returned when the backend answered with a non-2xx status.
// Detail holds the backend's "detail" string, empty when the body had none.
type RejectedError struct {
	Status int
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// Unwrap lets errors.Is(err, ErrRejected) match any RejectedError.
func (e *RejectedError) Unwrap() error { return ErrRejected }
