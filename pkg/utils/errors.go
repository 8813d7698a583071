package utils

import (
	"fmt"
)

// MakeError wraps a sentinel error with a formatted detail message
func MakeError(err error, detailsBody string, args ...any) error {
	return fmt.Errorf("%w: "+detailsBody, append([]any{err}, args...)...)
}
