// Package canceled recognizes errors caused by the caller giving up, as
// opposed to the remote end failing.
package canceled

import (
	"context"
	"errors"
)

// Is returns true if err is non-nil and context.Canceled is anywhere in its
// chain. A canceled check says nothing about the target and should not be
// reported as a timeout.
func Is(err error) bool {
	return err != nil && errors.Is(err, context.Canceled)
}
