// SPDX-License-Identifier: Apache-2.0

package source

import (
	"errors"
	"fmt"
)

// ErrUnavailable reports that the remote source could not be read after the
// retry budget was spent.
var ErrUnavailable = errors.New("source: remote dataset unavailable")

// UnavailableError carries the diagnostics for ErrUnavailable.
type UnavailableError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source: %s unavailable after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnavailable) hold for any *UnavailableError.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }
