package usecase

import (
	"context"
	"testing"
	"time"

	"matchcast/internal/domain"
)

func TestPruneRemovesExpiredTerminalPlaylists(t *testing.T) {
	env := newOrchEnv(t)
	ctx := context.Background()

	// An old completed playlist, an old live one and a fresh terminal one.
	old, oldLoc := env.seedPlaylist(t, false)
	if _, err := env.locators.Mutate(ctx, oldLoc.ID, func(st *domain.JobState) {
		st.Status = domain.JobCompleted
		st.CompletionRatio = 1
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	old.Locators[0].State = domain.JobState{Status: domain.JobCompleted, CompletionRatio: 1}
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	if err := env.plRepo.Update(ctx, old); err != nil {
		t.Fatalf("Update: %v", err)
	}

	live, liveLoc := env.seedPlaylist(t, false)
	if _, err := env.locators.Mutate(ctx, liveLoc.ID, func(st *domain.JobState) {
		st.Status = domain.JobStreaming
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	live.Locators[0].State = domain.JobState{Status: domain.JobStreaming}
	live.CreatedAt = time.Now().Add(-48 * time.Hour)
	if err := env.plRepo.Update(ctx, live); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fresh, freshLoc := env.seedPlaylist(t, false)
	if _, err := env.locators.Mutate(ctx, freshLoc.ID, func(st *domain.JobState) {
		st.Status = domain.JobStopped
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	fresh.Locators[0].State = domain.JobState{Status: domain.JobStopped}
	if err := env.plRepo.Update(ctx, fresh); err != nil {
		t.Fatalf("Update: %v", err)
	}

	p := &Pruner{
		Playlists:    env.playlists,
		Orchestrator: env.orch,
		Log:          discardLogger(),
		Retention:    24 * time.Hour,
	}
	if got := p.PruneStreams(ctx); got != 1 {
		t.Fatalf("pruned %d playlists, want 1", got)
	}
	if _, err := env.plRepo.GetBySource(ctx, old.SourceID); err == nil {
		t.Fatal("expired playlist survived the prune")
	}
	if _, err := env.plRepo.GetBySource(ctx, live.SourceID); err != nil {
		t.Fatalf("live playlist was pruned: %v", err)
	}
	if _, err := env.plRepo.GetBySource(ctx, fresh.SourceID); err != nil {
		t.Fatalf("fresh playlist was pruned: %v", err)
	}
}

func TestReconcileStopsOrphans(t *testing.T) {
	env := newOrchEnv(t)
	ctx := context.Background()

	pl, loc := env.seedPlaylist(t, false)
	if _, err := env.locators.Mutate(ctx, loc.ID, func(st *domain.JobState) {
		st.Status = domain.JobStreaming
		st.CompletionRatio = 0.3
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	pl.Locators[0].State = domain.JobState{Status: domain.JobStreaming, CompletionRatio: 0.3}
	if err := env.plRepo.Update(ctx, pl); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tracked, trackedLoc := env.seedPlaylist(t, false)
	if _, err := env.locators.Mutate(ctx, trackedLoc.ID, func(st *domain.JobState) {
		st.Status = domain.JobStreaming
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	tracked.Locators[0].State = domain.JobState{Status: domain.JobStreaming}
	if err := env.plRepo.Update(ctx, tracked); err != nil {
		t.Fatalf("Update: %v", err)
	}
	env.orch.Registry.Put(trackedLoc.ID, newFakeJob(nil, nil))

	r := &Reconciler{
		Playlists: env.playlists,
		Locators:  env.locators,
		Registry:  env.orch.Registry,
		Log:       discardLogger(),
	}
	r.Sweep(ctx)

	got, _ := env.locators.Get(ctx, loc.ID)
	if got.State.Status != domain.JobStopped || got.State.CompletionRatio != 0.3 {
		t.Fatalf("orphan state = %+v, want stopped with ratio 0.3", got.State)
	}
	still, _ := env.locators.Get(ctx, trackedLoc.ID)
	if still.State.Status != domain.JobStreaming {
		t.Fatalf("tracked locator state = %s, want streaming untouched", still.State.Status)
	}
}
