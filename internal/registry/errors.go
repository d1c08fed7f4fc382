// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the registry file does not exist.
var ErrNotFound = errors.New("registry: file not found")

// ErrSchema is returned when a required column is missing.
var ErrSchema = errors.New("registry: schema error")

// SchemaError names the missing column and the header that was found.
type SchemaError struct {
	Path   string
	Column string
	Header []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("registry: %s has no %q column (header: %q)", e.Path, e.Column, e.Header)
}

// Is makes errors.Is(err, ErrSchema) hold for any *SchemaError.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
