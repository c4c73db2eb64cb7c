package cms

import (
	"errors"
	"fmt"
)

// NotFoundError indicates WordPress has no node for the lookup key.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// IsNotFoundError checks if an error is, or wraps, a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
