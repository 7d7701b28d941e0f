// Package worker runs the engine's background loops: the periodic
// full rebuild, the recompute-queue drain, and the tag cleanup.
package worker

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rokysan7/Internal-SYS/internal/db"
	"github.com/rokysan7/Internal-SYS/internal/domain"
	"github.com/rokysan7/Internal-SYS/internal/metrics"
	similarityuc "github.com/rokysan7/Internal-SYS/internal/usecase/similarity"
	tagsuc "github.com/rokysan7/Internal-SYS/internal/usecase/tags"
	"github.com/rokysan7/Internal-SYS/internal/vsm"
)

// Similarity is the slice of the similarity service the loops need.
type Similarity interface {
	RebuildAll(ctx context.Context) (similarityuc.RebuildResult, error)
	RecomputeCase(ctx context.Context, caseID int64) error
}

// TagMaintainer runs the periodic tag-keyword cleanup.
type TagMaintainer interface {
	Cleanup(ctx context.Context) (tagsuc.CleanupResult, error)
}

// ModelReader checks whether a fitted model is already cached.
type ModelReader interface {
	GetModel(ctx context.Context) (*vsm.Model, error)
}

// Queue pops queued case ids.
type Queue interface {
	RPop(ctx context.Context, key string) (string, error)
}

// Options tune the loop intervals and the queue key.
type Options struct {
	RebuildInterval time.Duration
	CleanupInterval time.Duration
	DrainInterval   time.Duration
	QueueKey        string
}

func (o *Options) applyDefaults() {
	if o.RebuildInterval <= 0 {
		o.RebuildInterval = 6 * time.Hour
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = 24 * time.Hour
	}
	if o.DrainInterval <= 0 {
		o.DrainInterval = 5 * time.Second
	}
	if o.QueueKey == "" {
		o.QueueKey = "recompute:queue"
	}
}

// Runner owns the background loops. All three entry points are
// idempotent, so a crashed iteration is simply retried next tick.
type Runner struct {
	similarity Similarity
	tags       TagMaintainer
	models     ModelReader
	queue      Queue
	opts       Options
	logger     *zap.Logger
}

// NewRunner creates a worker runner.
func NewRunner(
	similarity Similarity,
	tags TagMaintainer,
	models ModelReader,
	queue Queue,
	opts Options,
	logger *zap.Logger,
) *Runner {
	opts.applyDefaults()
	return &Runner{
		similarity: similarity,
		tags:       tags,
		models:     models,
		queue:      queue,
		opts:       opts,
		logger:     logger,
	}
}

// Run starts the loops and blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); r.rebuildLoop(ctx) }()
	go func() { defer wg.Done(); r.cleanupLoop(ctx) }()
	go func() { defer wg.Done(); r.drainLoop(ctx) }()
	wg.Wait()
}

// rebuildLoop refits the model on a fixed interval, plus once at
// startup when the cache holds no model yet.
func (r *Runner) rebuildLoop(ctx context.Context) {
	if _, err := r.models.GetModel(ctx); errors.Is(err, domain.ErrModelNotCached) {
		r.runRebuild(ctx)
	}

	ticker := time.NewTicker(r.opts.RebuildInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runRebuild(ctx)
		}
	}
}

func (r *Runner) runRebuild(ctx context.Context) {
	timer := prometheus.NewTimer(metrics.RebuildDuration)
	result, err := r.similarity.RebuildAll(ctx)
	timer.ObserveDuration()

	if err != nil {
		metrics.RebuildTotal.WithLabelValues("error").Inc()
		r.logger.Error("model rebuild failed", zap.Error(err))
		return
	}
	metrics.RebuildTotal.WithLabelValues("ok").Inc()
	r.logger.Info("model rebuild finished",
		zap.Int("cases", result.Cases), zap.Int("neighbor_entries", result.Neighbors))
}

func (r *Runner) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(r.opts.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := r.tags.Cleanup(ctx)
			if err != nil {
				r.logger.Error("tag cleanup failed", zap.Error(err))
				continue
			}
			metrics.CleanupRemovedTotal.WithLabelValues("tags").Add(float64(result.TagsRemoved))
			metrics.CleanupRemovedTotal.WithLabelValues("keywords").Add(float64(result.KeywordsRemoved))
		}
	}
}

// drainLoop polls the recompute queue the external API pushes case
// ids onto and refreshes each popped case's neighbor list.
func (r *Runner) drainLoop(ctx context.Context) {
	ticker := time.NewTicker(r.opts.DrainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce pops until the queue is empty. Unparsable payloads are
// dropped with a warning so one bad entry cannot wedge the queue.
func (r *Runner) drainOnce(ctx context.Context) {
	for {
		payload, err := r.queue.RPop(ctx, r.opts.QueueKey)
		if errors.Is(err, db.ErrKeyNotFound) {
			return
		}
		if err != nil {
			r.logger.Error("recompute queue pop failed", zap.Error(err))
			return
		}

		caseID, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			r.logger.Warn("dropping unparsable queue entry", zap.String("payload", payload))
			continue
		}

		if err := r.similarity.RecomputeCase(ctx, caseID); err != nil {
			metrics.RecomputeTotal.WithLabelValues("error").Inc()
			r.logger.Error("case recompute failed", zap.Int64("case_id", caseID), zap.Error(err))
			continue
		}
		metrics.RecomputeTotal.WithLabelValues("ok").Inc()
	}
}
