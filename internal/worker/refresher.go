// Package worker runs the background refresher: it recomputes dashboard
// snapshots into the cache on an interval and periodically hands aged audit
// entries to the archiver. Transitions themselves are synchronous in the API
// service; nothing here mutates pipeline state.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hiring-pipeline/internal/archive"
	"hiring-pipeline/internal/cache"
	"hiring-pipeline/internal/config"
	"hiring-pipeline/internal/projector"
	"hiring-pipeline/internal/registry"
	"hiring-pipeline/internal/telemetry"
)

// Refresher drives the snapshot/archive loop.
type Refresher struct {
	cfg      config.Config
	proj     *projector.Projector
	cache    *cache.Dashboard
	archiver *archive.Archiver
	log      *zap.Logger
}

// NewRefresher wires the loop. archiver may be nil to disable exports.
func NewRefresher(cfg config.Config, proj *projector.Projector, c *cache.Dashboard, arch *archive.Archiver, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{cfg: cfg, proj: proj, cache: c, archiver: arch, log: log}
}

// Run refreshes snapshots until context cancellation.
func (r *Refresher) Run(ctx context.Context) error {
	refresh := time.NewTicker(r.cfg.RefreshInterval)
	defer refresh.Stop()
	archiveTick := time.NewTicker(r.cfg.ArchiveInterval)
	defer archiveTick.Stop()

	// Prime the cache before the first tick.
	r.refreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refresh.C:
			r.refreshOnce(ctx)
		case <-archiveTick.C:
			r.archiveOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	funnel, err := r.proj.FunnelCounts(ctx)
	if err != nil {
		r.log.Warn("funnel refresh failed", zap.Error(err))
		return
	}
	if err := r.cache.SetFunnel(ctx, funnel); err != nil {
		r.log.Warn("funnel cache write failed", zap.Error(err))
	}
	for _, st := range registry.Statuses() {
		telemetry.FunnelDepth.WithLabelValues(string(st)).Set(float64(funnel[st]))
	}

	if g, err := r.proj.MonthlyGrowth(ctx, nil); err != nil {
		r.log.Warn("growth refresh failed", zap.Error(err))
	} else if err := r.cache.SetGrowth(ctx, nil, g); err != nil {
		r.log.Warn("growth cache write failed", zap.Error(err))
	}
	for _, st := range registry.Statuses() {
		st := st
		g, err := r.proj.MonthlyGrowth(ctx, &st)
		if err != nil {
			r.log.Warn("growth refresh failed", zap.String("status", string(st)), zap.Error(err))
			continue
		}
		if err := r.cache.SetGrowth(ctx, &st, g); err != nil {
			r.log.Warn("growth cache write failed", zap.String("status", string(st)), zap.Error(err))
		}
	}

	telemetry.SnapshotRefreshes.Inc()
}

func (r *Refresher) archiveOnce(ctx context.Context) {
	if r.archiver == nil {
		return
	}
	n, err := r.archiver.Run(ctx)
	if err != nil {
		r.log.Warn("audit archive run failed", zap.Error(err))
		return
	}
	if n > 0 {
		telemetry.ArchivedEntries.Add(float64(n))
	}
}
