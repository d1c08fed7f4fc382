// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
)

// Fetcher retrieves a fresh dataset from the network.
type Fetcher interface {
	Fetch(ctx context.Context) (*dataset.Dataset, error)
}

// Origin tells where a loaded dataset came from.
type Origin string

const (
	OriginCache  Origin = "cache"
	OriginRemote Origin = "remote"
	// OriginStale marks a stored snapshot served because the fetch failed.
	OriginStale Origin = "stale"
)

// Policy controls freshness and failure handling.
type Policy struct {
	// MaxAge makes a stored snapshot expire. Zero means it never does and
	// the network is only consulted on a forced refresh.
	MaxAge time.Duration
	// FallbackStale serves the stored snapshot when a fetch fails.
	FallbackStale bool
}

// Result is the outcome of Cache.Load.
type Result struct {
	Dataset *dataset.Dataset
	Origin  Origin
	// FetchErr is the fetch failure behind an OriginStale result.
	FetchErr error
}

// Cache serves the stored snapshot or refreshes it from the Fetcher.
// Concurrent refreshes are collapsed into a single fetch.
type Cache struct {
	store   Store
	fetcher Fetcher
	policy  Policy
	logger  *zap.Logger
	group   singleflight.Group
	now     func() time.Time
}

// NewCache wires a Store and a Fetcher under the given policy.
func NewCache(store Store, fetcher Fetcher, policy Policy, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:   store,
		fetcher: fetcher,
		policy:  policy,
		logger:  logger.Named("snapshot"),
		now:     time.Now,
	}
}

// Load returns the stored snapshot unless forceRefresh is set, none exists,
// or it has expired; in those cases it fetches, persists and returns the
// fresh dataset.
func (c *Cache) Load(ctx context.Context, forceRefresh bool) (*Result, error) {
	var stored *dataset.Dataset
	if !forceRefresh {
		ds, err := c.store.Load(ctx)
		switch {
		case err == nil && c.fresh(ds):
			return &Result{Dataset: ds, Origin: OriginCache}, nil
		case err == nil:
			c.logger.Info("snapshot expired, refreshing",
				zap.Time("fetched_at", ds.FetchedAt),
				zap.Duration("max_age", c.policy.MaxAge))
			stored = ds
		case errors.Is(err, ErrNoSnapshot):
		default:
			c.logger.Warn("snapshot unreadable, refreshing", zap.Error(err))
		}
	}
	return c.refresh(ctx, stored)
}

// Invalidate drops the stored snapshot so the next Load fetches.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.store.Invalidate(ctx)
}

func (c *Cache) fresh(ds *dataset.Dataset) bool {
	if c.policy.MaxAge <= 0 {
		return true
	}
	return ds.Age(c.now()) <= c.policy.MaxAge
}

func (c *Cache) refresh(ctx context.Context, stored *dataset.Dataset) (*Result, error) {
	// The shared fetch outlives any single caller; the fetcher's own timeout
	// and retry budget bound it.
	ch := c.group.DoChan("refresh", func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		ds, err := c.fetcher.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Save(fetchCtx, ds); err != nil {
			c.logger.Warn("snapshot not persisted, previous snapshot kept", zap.Error(err))
		} else {
			c.logger.Info("snapshot persisted", zap.Int("records", ds.Len()))
		}
		return ds, nil
	})

	var (
		v   any
		err error
	)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		v, err = r.Val, r.Err
	}
	if err == nil {
		return &Result{Dataset: v.(*dataset.Dataset), Origin: OriginRemote}, nil
	}

	if !c.policy.FallbackStale {
		return nil, err
	}
	if stored == nil {
		ds, loadErr := c.store.Load(ctx)
		if loadErr != nil {
			return nil, err
		}
		stored = ds
	}
	c.logger.Warn("fetch failed, serving stale snapshot",
		zap.Time("fetched_at", stored.FetchedAt),
		zap.Int("records", stored.Len()),
		zap.Error(err))
	return &Result{Dataset: stored, Origin: OriginStale, FetchErr: err}, nil
}
