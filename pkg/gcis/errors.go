package gcis

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParams is returned for ListParams that cannot be sent upstream.
	ErrInvalidParams = errors.New("gcis: invalid list params")
	// ErrNotFound is returned by GetBusinessItem when no item has the code.
	ErrNotFound = errors.New("gcis: business item not found")
)

// TransportError reports a network failure or a non-2xx response.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gcis: transport: status %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("gcis: transport: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ShapeError reports a response body or raw entry with an unusable shape.
type ShapeError struct {
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gcis: shape: %s: %v", e.Reason, e.Err)
	}
	return "gcis: shape: " + e.Reason
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err (or any error in its chain) is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsShapeError reports whether err (or any error in its chain) is a ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}
