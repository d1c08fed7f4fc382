// SPDX-License-Identifier: Apache-2.0

// Package refresh re-fetches the dataset snapshot on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
	"github.com/conectividadeproj/conectividade-mcp/internal/snapshot"
)

// DefaultTimeout bounds one scheduled refresh.
const DefaultTimeout = 15 * time.Minute

// Scheduler forces a snapshot refresh on every tick of a standard cron
// expression. A tick is skipped while the previous refresh still runs.
type Scheduler struct {
	cron     *cron.Cron
	datasets coverage.DatasetLoader
	logger   *zap.Logger
	timeout  time.Duration
	ctx      context.Context
	runs     atomic.Int64
}

// New parses schedule ("0 6 * * *", "@every 6h", ...) and prepares a
// Scheduler. It does not start it.
func New(schedule string, datasets coverage.DatasetLoader, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	s := &Scheduler{
		datasets: datasets,
		logger:   logger.Named("refresh"),
		timeout:  DefaultTimeout,
		ctx:      context.Background(),
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger.Sugar()})))
	s.cron.Schedule(parsed, cron.FuncJob(s.tick))
	return s, nil
}

// Start runs the schedule until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("refresh scheduler started", zap.Time("next", s.Next()))
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("refresh scheduler stopped", zap.Int64("runs", s.runs.Load()))
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Runs counts completed refresh attempts.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// RunNow performs one refresh synchronously.
func (s *Scheduler) RunNow(ctx context.Context) (*snapshot.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer s.runs.Add(1)

	start := time.Now()
	result, err := s.datasets.Load(ctx, true)
	if err != nil {
		s.logger.Error("scheduled refresh failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, err
	}
	s.logger.Info("scheduled refresh done",
		zap.String("origin", string(result.Origin)),
		zap.Int("records", result.Dataset.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (s *Scheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	_, _ = s.RunNow(s.ctx)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
