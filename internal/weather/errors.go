package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when no record exists for a location.
	ErrNotFound = errors.New("no weather data for location")

	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamTransport   = errors.New("upstream transport failure")
	ErrUpstreamUnexpected  = errors.New("upstream unexpected failure")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrStorage             = errors.New("storage error")
)

// UpstreamError describes a failed provider call. Kind is one of the
// ErrUpstream* sentinels; StatusCode and Body are set for ErrUpstreamUnavailable.
type UpstreamError struct {
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%v: status %d: %s", e.Kind, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MalformedPayloadError names the required payload field that was missing or invalid.
type MalformedPayloadError struct {
	Field string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("%v: missing required field %q", ErrMalformedPayload, e.Field)
}

func (e *MalformedPayloadError) Unwrap() error { return ErrMalformedPayload }

// StorageError wraps a failure reported by a Store adapter.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// NewStorageError wraps err as a StorageError for op. A nil err stays nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ErrorKind returns the taxonomy name of err for logs and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpstreamTimeout):
		return "UpstreamTimeout"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailable"
	case errors.Is(err, ErrUpstreamTransport):
		return "UpstreamTransport"
	case errors.Is(err, ErrUpstreamUnexpected):
		return "UpstreamUnexpected"
	case errors.Is(err, ErrMalformedPayload):
		return "MalformedPayload"
	case errors.Is(err, ErrStorage):
		return "StorageError"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	default:
		return "Unknown"
	}
}
