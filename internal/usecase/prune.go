package usecase

import (
	"context"
	"log/slog"
	"time"

	"matchcast/internal/domain"
	"matchcast/internal/metrics"
)

// Pruner removes locator playlists whose data has outlived its usefulness:
// terminal playlists older than the retention window.
type Pruner struct {
	Playlists    *PlaylistService
	Orchestrator *Orchestrator
	Log          *slog.Logger

	// Retention is how long a finished playlist's data is kept.
	Retention time.Duration
}

// PruneStreams deletes every expired playlist and returns how many were
// removed. Individual failures are logged and skipped so one stuck
// playlist cannot block the sweep.
func (p *Pruner) PruneStreams(ctx context.Context) int {
	pls, err := p.Playlists.List(ctx)
	if err != nil {
		p.Log.Error("listing playlists for prune", "error", err)
		return 0
	}

	cutoff := time.Now().Add(-p.Retention)
	pruned := 0
	for _, pl := range pls {
		if !p.expired(pl, cutoff) {
			continue
		}
		if err := p.Orchestrator.DeleteAll(ctx, pl); err != nil {
			p.Log.Warn("pruning playlist", "playlistId", pl.ID, "error", err)
			continue
		}
		pruned++
		metrics.PlaylistsPruned.Inc()
	}
	if pruned > 0 {
		p.Log.Info("pruned expired playlists", "count", pruned)
	}
	return pruned
}

func (p *Pruner) expired(pl domain.LocatorPlaylist, cutoff time.Time) bool {
	return pl.State().Status.Terminal() && pl.CreatedAt.Before(cutoff)
}

// Run prunes on the given interval until the context is cancelled.
func (p *Pruner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneStreams(ctx)
		}
	}
}
