// SPDX-License-Identifier: Apache-2.0

package coverage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conectividadeproj/conectividade-mcp/internal/normalize"
	"github.com/conectividadeproj/conectividade-mcp/internal/registry"
	"github.com/conectividadeproj/conectividade-mcp/internal/snapshot"
)

// maxLoggedLabels caps the unrecognized labels logged per field and run.
const maxLoggedLabels = 20

// DatasetLoader serves the raw dataset, refreshing it when asked.
type DatasetLoader interface {
	Load(ctx context.Context, forceRefresh bool) (*snapshot.Result, error)
}

// RegistryLoader serves the municipality registry.
type RegistryLoader interface {
	Load(ctx context.Context) (*registry.Registry, error)
}

// Pipeline runs load, normalization and aggregation end to end. Every run
// recomputes the table from scratch.
type Pipeline struct {
	datasets   DatasetLoader
	registry   RegistryLoader
	normalizer *normalize.Normalizer
	engine     *Engine
	logger     *zap.Logger
}

// NewPipeline creates a Pipeline. A nil normalizer uses the built-in
// vocabulary.
func NewPipeline(datasets DatasetLoader, reg RegistryLoader, normalizer *normalize.Normalizer, logger *zap.Logger) *Pipeline {
	if normalizer == nil {
		normalizer = normalize.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		datasets:   datasets,
		registry:   reg,
		normalizer: normalizer,
		engine:     NewEngine(),
		logger:     logger.Named("coverage"),
	}
}

// RunOptions tune one run.
type RunOptions struct {
	// Refresh forces a fetch from the remote source.
	Refresh bool
}

// RunResult is the output of a successful pipeline run.
type RunResult struct {
	RunID             string
	Origin            snapshot.Origin
	FetchedAt         time.Time
	Records           int
	VocabularyVersion string
	Normalization     normalize.Report
	Table             *Table
	Eligible          []EligibleSchool
	Summary           Summary
	// States lists the registry's state codes, sorted.
	States []string
}

// KnownState reports whether uf is one of the registry's states. An empty
// uf matches.
func (r *RunResult) KnownState(uf string) bool {
	if uf == "" {
		return true
	}
	for _, s := range r.States {
		if strings.EqualFold(s, uf) {
			return true
		}
	}
	return false
}

func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Table, error) {
	result, err := p.RunWithMeta(ctx, opts)
	if err != nil {
		return nil, err
	}
	return result.Table, nil
}

func (p *Pipeline) RunWithMeta(ctx context.Context, opts RunOptions) (*RunResult, error) {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	reg, err := p.registry.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	loaded, err := p.datasets.Load(ctx, opts.Refresh)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	ds := loaded.Dataset
	if loaded.Origin == snapshot.OriginStale {
		logger.Warn("aggregating a stale snapshot", zap.Time("fetched_at", ds.FetchedAt), zap.Error(loaded.FetchErr))
	}

	records, report := p.normalizer.Normalize(ds.Records)
	p.logUnrecognized(logger, report)

	agg, err := p.engine.Compute(records, reg)
	if err != nil {
		return nil, err
	}

	logger.Info("coverage computed",
		zap.String("origin", string(loaded.Origin)),
		zap.Int("records", ds.Len()),
		zap.Int("eligible_schools", agg.Summary.EligibleSchools),
		zap.Int("active_schools", agg.Summary.ActiveSchools),
		zap.Int("out_of_registry_schools", agg.Summary.OutOfRegistrySchools),
		zap.Int("municipalities", agg.Summary.Municipalities),
		zap.Int("municipalities_100", agg.Summary.TierCounts[Tier100]))

	return &RunResult{
		RunID:             runID,
		Origin:            loaded.Origin,
		FetchedAt:         ds.FetchedAt,
		Records:           ds.Len(),
		VocabularyVersion: p.normalizer.Version(),
		Normalization:     report,
		Table:             agg.Table,
		Eligible:          agg.Eligible,
		Summary:           agg.Summary,
		States:            reg.States(),
	}, nil
}

func (p *Pipeline) logUnrecognized(logger *zap.Logger, report normalize.Report) {
	for _, field := range []normalize.Field{normalize.FieldDependency, normalize.FieldInternet, normalize.FieldStatus} {
		labels := report.UnrecognizedLabels(field)
		for i, label := range labels {
			if i == maxLoggedLabels {
				logger.Warn("more unrecognized labels omitted",
					zap.String("field", string(field)),
					zap.Int("omitted", len(labels)-maxLoggedLabels))
				break
			}
			logger.Warn("unrecognized label routed to default",
				zap.String("field", string(field)),
				zap.String("label", label),
				zap.Int("count", report.Unrecognized[field][label]))
		}
	}
}
