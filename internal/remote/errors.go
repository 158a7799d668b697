package remote

import "fmt"

// Error is a failure reported by the template service, either a
// non-2xx status or a response body carrying a top-level "errors"
// field (the service reports some failures with HTTP 200).
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("template service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("template service error: %s", e.Message)
}
