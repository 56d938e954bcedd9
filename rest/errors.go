package rest

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout reports that the per-call timeout elapsed before a
	// response was obtained.
	ErrTimeout = errors.New("request timed out")

	// ErrUnauthorized reports a 401 that survived the single
	// refresh-and-retry attempt.
	ErrUnauthorized = errors.New("unauthorized")
)

// NetworkError wraps a transport-level failure that occurred before any
// response was obtained.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// FieldError is one entry of a server-supplied field-level detail list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ServerError is a structured non-success response from the backend.
// Code, Message and Details are filled only when the response body was
// parseable; Status is always set.
type ServerError struct {
	Status  int
	Code    string
	Message string
	Details []FieldError
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}
