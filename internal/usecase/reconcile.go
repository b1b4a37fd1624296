package usecase

import (
	"context"
	"log/slog"

	"matchcast/internal/domain"
)

// Reconciler repairs state left behind by an unclean shutdown: locators
// recorded as queued or streaming whose process no longer exists.
type Reconciler struct {
	Playlists *PlaylistService
	Locators  *LocatorService
	Registry  *JobRegistry
	Log       *slog.Logger
}

// Sweep marks every orphaned non-terminal locator as stopped, preserving
// the completion ratio it reached before the crash.
func (r *Reconciler) Sweep(ctx context.Context) {
	pls, err := r.Playlists.List(ctx)
	if err != nil {
		r.Log.Error("listing playlists for reconcile", "error", err)
		return
	}

	repaired := 0
	for _, pl := range pls {
		for _, loc := range pl.Locators {
			if loc.State.Status.Terminal() {
				continue
			}
			if _, live := r.Registry.Get(loc.ID); live {
				continue
			}
			if _, err := r.Locators.Mutate(ctx, loc.ID, func(st *domain.JobState) {
				if !st.Status.Terminal() {
					st.Status = domain.JobStopped
				}
			}); err != nil {
				r.Log.Warn("reconciling locator", "locatorId", loc.ID, "error", err)
				continue
			}
			repaired++
		}
	}
	if repaired > 0 {
		r.Log.Info("reconciled orphaned locators", "count", repaired)
	}
}
