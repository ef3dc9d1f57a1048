package drive

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// APIError is a non-2xx response from the Drive API, carrying the original
// HTTP status code and the server's message. It is surfaced to the agent
// runtime as the tool's failure result; nothing is retried.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("drive API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("drive API error: HTTP %d: %s", e.StatusCode, e.Message)
}

// wrapAPIError wraps an error from a Drive API call with the failing
// operation. Responses the client library reports as *googleapi.Error are
// converted to *APIError so callers can inspect the status code; all other
// errors (auth, transport) pass through unchanged under the wrap.
func wrapAPIError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("%s: %w", op, &APIError{StatusCode: gerr.Code, Message: gerr.Message})
	}
	return fmt.Errorf("%s: %w", op, err)
}
