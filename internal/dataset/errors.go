package dataset

import (
	"errors"
	"fmt"
)

// FetchError reports the resource that made a load fail. StatusCode is zero when the
// transport failed before a response arrived.
type FetchError struct {
	Resource   string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dataset: load %s (%s): status %d", e.Resource, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("dataset: load %s (%s): %v", e.Resource, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrDecode wraps malformed response bodies.
var ErrDecode = errors.New("dataset: decode failed")

// FailedResource extracts the failing resource from a load error, or "" when the
// error did not come from a fetch.
func FailedResource(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Resource
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.resource
	}
	return ""
}

type decodeError struct {
	resource string
	err      error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("dataset: decode %s: %v", e.resource, e.err)
}

func (e *decodeError) Unwrap() []error {
	return []error{ErrDecode, e.err}
}
