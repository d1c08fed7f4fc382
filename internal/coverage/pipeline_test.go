// SPDX-License-Identifier: Apache-2.0

package coverage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
	"github.com/conectividadeproj/conectividade-mcp/internal/registry"
	"github.com/conectividadeproj/conectividade-mcp/internal/snapshot"
)

type staticDatasets struct {
	result    *snapshot.Result
	err       error
	refreshed []bool
}

func (s *staticDatasets) Load(_ context.Context, forceRefresh bool) (*snapshot.Result, error) {
	s.refreshed = append(s.refreshed, forceRefresh)
	return s.result, s.err
}

type staticRegistry struct {
	reg *registry.Registry
	err error
}

func (s staticRegistry) Load(context.Context) (*registry.Registry, error) {
	return s.reg, s.err
}

type staticFetcher struct{ ds *dataset.Dataset }

func (f staticFetcher) Fetch(context.Context) (*dataset.Dataset, error) { return f.ds, nil }

func sampleRecords() []dataset.SchoolRecord {
	return []dataset.SchoolRecord{
		raw("1", "A", "Municipal", "Sim", "ativo"),
		raw("1", "A", "Municipal", "Sim", "inativo"),
		raw("2", "B", "Municipal", "Sim", "ativo"),
		raw("2", "C", "Municipal", "Sim", "desligado"),
		raw("3", "D", "Municipal", "Talvez", "ativo"),
	}
}

func TestPipeline_RunWithMeta(t *testing.T) {
	fetchedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	datasets := &staticDatasets{result: &snapshot.Result{
		Dataset: &dataset.Dataset{Records: sampleRecords(), FetchedAt: fetchedAt, Source: "test"},
		Origin:  snapshot.OriginCache,
	}}
	core, logs := observer.New(zapcore.InfoLevel)

	p := coverage.NewPipeline(datasets, staticRegistry{reg: testRegistry()}, nil, zap.New(core))
	result, err := p.RunWithMeta(context.Background(), coverage.RunOptions{Refresh: true})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, snapshot.OriginCache, result.Origin)
	assert.Equal(t, fetchedAt, result.FetchedAt)
	assert.Equal(t, 5, result.Records)
	assert.NotEmpty(t, result.VocabularyVersion)
	assert.Equal(t, []bool{true}, datasets.refreshed)
	assert.Equal(t, []string{"BA", "SP"}, result.States)
	assert.True(t, result.KnownState("sp"))
	assert.True(t, result.KnownState(""))
	assert.False(t, result.KnownState("RJ"))

	assert.Equal(t, coverage.Tier100, rowFor(t, result.Table, "0000001").Tier)
	assert.Equal(t, coverage.Tier50, rowFor(t, result.Table, "0000002").Tier)
	assert.False(t, rowFor(t, result.Table, "0000003").HasRatio())

	assert.Equal(t, 2, result.Normalization.UnrecognizedTotal())
	assert.Equal(t, 2, logs.FilterMessage("unrecognized label routed to default").Len())
	require.Equal(t, 1, logs.FilterMessage("coverage computed").Len())
	entry := logs.FilterMessage("coverage computed").All()[0]
	assert.Equal(t, result.RunID, entry.ContextMap()["run_id"])
}

func TestPipeline_Run_ReturnsTable(t *testing.T) {
	datasets := &staticDatasets{result: &snapshot.Result{
		Dataset: &dataset.Dataset{Records: sampleRecords()},
		Origin:  snapshot.OriginRemote,
	}}
	p := coverage.NewPipeline(datasets, staticRegistry{reg: testRegistry()}, nil, zap.NewNop())

	table, err := p.Run(context.Background(), coverage.RunOptions{})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, []bool{false}, datasets.refreshed)
}

func TestPipeline_RegistryFailureStopsBeforeFetch(t *testing.T) {
	datasets := &staticDatasets{}
	p := coverage.NewPipeline(datasets, staticRegistry{err: registry.ErrNotFound}, nil, nil)

	_, err := p.Run(context.Background(), coverage.RunOptions{})
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Empty(t, datasets.refreshed)
}

func TestPipeline_DatasetFailure(t *testing.T) {
	boom := errors.New("unreachable")
	p := coverage.NewPipeline(&staticDatasets{err: boom}, staticRegistry{reg: testRegistry()}, nil, nil)

	_, err := p.Run(context.Background(), coverage.RunOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestPipeline_EmptyDataset(t *testing.T) {
	datasets := &staticDatasets{result: &snapshot.Result{Dataset: &dataset.Dataset{}, Origin: snapshot.OriginCache}}
	p := coverage.NewPipeline(datasets, staticRegistry{reg: testRegistry()}, nil, nil)

	_, err := p.Run(context.Background(), coverage.RunOptions{})
	assert.ErrorIs(t, err, coverage.ErrEmptyDataset)
}

func TestPipeline_StaleOriginIsLogged(t *testing.T) {
	datasets := &staticDatasets{result: &snapshot.Result{
		Dataset:  &dataset.Dataset{Records: sampleRecords()},
		Origin:   snapshot.OriginStale,
		FetchErr: errors.New("http 503"),
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	p := coverage.NewPipeline(datasets, staticRegistry{reg: testRegistry()}, nil, zap.New(core))

	result, err := p.RunWithMeta(context.Background(), coverage.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, snapshot.OriginStale, result.Origin)
	assert.Equal(t, 1, logs.FilterMessage("aggregating a stale snapshot").Len())
}

func TestPipeline_WithSnapshotCache(t *testing.T) {
	store := snapshot.NewFileStore(filepath.Join(t.TempDir(), "api_cache.json"))
	fetcher := staticFetcher{ds: &dataset.Dataset{Records: sampleRecords(), FetchedAt: time.Now(), Source: "test"}}
	cache := snapshot.NewCache(store, fetcher, snapshot.Policy{FallbackStale: true}, nil)
	p := coverage.NewPipeline(cache, staticRegistry{reg: testRegistry()}, nil, nil)

	first, err := p.RunWithMeta(context.Background(), coverage.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, snapshot.OriginRemote, first.Origin)

	second, err := p.RunWithMeta(context.Background(), coverage.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, snapshot.OriginCache, second.Origin)
	assert.Equal(t, first.Table, second.Table)
	assert.NotEqual(t, first.RunID, second.RunID)
}
