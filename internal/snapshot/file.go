// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
)

const fileFormatVersion = 1

type fileEnvelope struct {
	Version   int                    `json:"version"`
	FetchedAt time.Time              `json:"fetched_at"`
	Source    string                 `json:"source"`
	Records   []dataset.SchoolRecord `json:"records"`
}

// FileStore keeps the snapshot as a JSON document. Writes go to a temporary
// file in the same directory and are renamed over the target, so readers
// only ever see a complete snapshot.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (*dataset.Dataset, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", s.path, err)
	}
	defer f.Close()

	var env fileEnvelope
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&env); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", s.path, err)
	}
	if env.Version != fileFormatVersion {
		return nil, fmt.Errorf("snapshot: %s has unsupported version %d", s.path, env.Version)
	}
	return &dataset.Dataset{
		Records:   env.Records,
		FetchedAt: env.FetchedAt,
		Source:    env.Source,
	}, nil
}

func (s *FileStore) Save(_ context.Context, ds *dataset.Dataset) error {
	if ds == nil {
		return errors.New("snapshot: nil dataset")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	env := fileEnvelope{
		Version:   fileFormatVersion,
		FetchedAt: ds.FetchedAt,
		Source:    ds.Source,
		Records:   ds.Records,
	}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("snapshot: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		committed = true
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	committed = true
	return nil
}

func (s *FileStore) Invalidate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("snapshot: remove %s: %w", s.path, err)
	}
	return nil
}
