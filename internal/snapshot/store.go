// SPDX-License-Identifier: Apache-2.0

// Package snapshot persists the last successfully fetched dataset and decides
// when the network has to be consulted again.
package snapshot

import (
	"context"
	"errors"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
)

// ErrNoSnapshot is returned by Store.Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("snapshot: no snapshot stored")

// Store is the persistence behind the Cache. Save must replace the previous
// snapshot atomically: a failed Save leaves the old one readable.
type Store interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
	Save(ctx context.Context, ds *dataset.Dataset) error
	Invalidate(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the Store for the named backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		st, err := OpenSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, errors.New("snapshot: unknown backend " + backend)
	}
}
