// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
	"github.com/conectividadeproj/conectividade-mcp/internal/normalize"
	"github.com/conectividadeproj/conectividade-mcp/internal/registry"
	"github.com/conectividadeproj/conectividade-mcp/internal/snapshot"
	"github.com/conectividadeproj/conectividade-mcp/internal/source"
)

// app wires the components described by the loaded configuration.
type app struct {
	store    snapshot.Store
	cache    *snapshot.Cache
	pipeline *coverage.Pipeline
}

func newApp() (*app, error) {
	if dir := filepath.Dir(cfg.Snapshot.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	store, err := snapshot.Open(cfg.Snapshot.Backend, cfg.Snapshot.Path)
	if err != nil {
		return nil, err
	}

	fetcher := source.New(cfg.SourceConfig(), logger)
	cache := snapshot.NewCache(store, fetcher, cfg.SnapshotPolicy(), logger)

	normalizer, err := newNormalizer()
	if err != nil {
		closeStore(store)
		return nil, err
	}
	loader := registry.NewLoader(cfg.RegistryConfig(), logger)

	logger.Debug("components ready",
		zap.String("source", fetcher.URL()),
		zap.String("snapshot_backend", cfg.Snapshot.Backend),
		zap.String("snapshot_path", cfg.Snapshot.Path),
		zap.String("registry", cfg.Registry.Path),
		zap.Int("key_width", normalizer.KeyWidth()),
		zap.String("vocabulary", normalizer.Version()))

	return &app{
		store:    store,
		cache:    cache,
		pipeline: coverage.NewPipeline(cache, loader, normalizer, logger),
	}, nil
}

func newNormalizer() (*normalize.Normalizer, error) {
	vocab := normalize.DefaultVocabulary()
	if p := cfg.Normalize.VocabularyPath; p != "" {
		var err error
		if vocab, err = normalize.LoadVocabulary(p); err != nil {
			return nil, err
		}
	}
	return normalize.New(vocab, *cfg.Keys.MunicipalityWidth)
}

func (a *app) Close() {
	closeStore(a.store)
}

func closeStore(store snapshot.Store) {
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("close snapshot store", zap.Error(err))
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
