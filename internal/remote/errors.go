package remote

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no origin base URL is set. Callers treat
// it as "use bundled content", not as a failure.
var ErrNotConfigured = &NotConfiguredError{}

type NotConfiguredError struct{}

func (e *NotConfiguredError) Error() string { return "remote: api base url not configured" }

type TimeoutError struct {
	URL string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("remote: request timeout: %s", e.URL) }

type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote: request failed with status %d: %s", e.Status, e.URL)
}

// SchemaError reports a payload that is not JSON or does not have the
// expected shape. Err may be a *content.ValidationError.
type SchemaError struct {
	URL string
	Err error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("remote: invalid payload from %s: %v", e.URL, e.Err) }
func (e *SchemaError) Unwrap() error { return e.Err }

func IsNotConfigured(err error) bool {
	var nc *NotConfiguredError
	return errors.As(err, &nc)
}

// IsNetwork reports transport level failures: timeouts, HTTP status errors
// and anything below them that is not a payload problem.
func IsNetwork(err error) bool {
	if err == nil || IsNotConfigured(err) {
		return false
	}
	var se *SchemaError
	return !errors.As(err, &se)
}
