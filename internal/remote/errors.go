package remote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrEmptyContent rejects comment submissions whose content is blank after
// trimming. The check runs before any request leaves the process.
var ErrEmptyContent = errors.New("comment content must not be empty")

// ErrNotFound is returned for upstream 404s after the status has been folded
// into an APIError, so callers can branch without inspecting status codes.
var ErrNotFound = errors.New("resource not found")

var errPolicy = bluemonday.StrictPolicy()

// APIError is a non-2xx upstream response. Message is stripped of markup;
// the upstream occasionally returns full HTML error pages.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %d", e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}

// DecodeError is a 2xx response whose body did not parse as the expected
// shape. It is kept distinct from APIError so callers can tell "the server
// said no" apart from "the server said something unintelligible".
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func cleanMessage(msg string) string {
	cleaned := strings.TrimSpace(errPolicy.Sanitize(msg))
	const max = 300
	if len(cleaned) > max {
		cleaned = cleaned[:max]
	}
	return cleaned
}
