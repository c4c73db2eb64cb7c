package wpgraphql

import (
	"errors"
	"fmt"
	"strings"
)

// GraphQLError is the first entry of a response's "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

func (e *GraphQLError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("graphql error: %s", e.Message)
	}
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("graphql error at %s: %s", strings.Join(parts, "."), e.Message)
}

// StatusError reports a non-2xx HTTP response from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("wordpress returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("wordpress returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// IsGraphQLError checks if err is, or wraps, a *GraphQLError.
func IsGraphQLError(err error) bool {
	var gqlErr *GraphQLError
	return errors.As(err, &gqlErr)
}

// IsStatusError checks if err is, or wraps, a *StatusError with the given code.
// A code of 0 matches any status.
func IsStatusError(err error, code int) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return code == 0 || statusErr.StatusCode == code
}
