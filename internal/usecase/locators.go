package usecase

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
)

// keyedMutex hands out one mutex per locator so state read-modify-write
// cycles on the same locator serialize without a global lock.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.LocatorID]*sync.Mutex
}

func (k *keyedMutex) get(id domain.LocatorID) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[domain.LocatorID]*sync.Mutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	return m
}

func (k *keyedMutex) forget(id domain.LocatorID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.locks, id)
}

// LocatorService owns the lifecycle of stream locators. Every state write
// goes through here so status changes reach the notifier exactly once.
type LocatorService struct {
	Repo             ports.LocatorRepository
	Notifier         ports.StatusNotifier
	PlaylistFileName string
	Log              *slog.Logger

	locks keyedMutex
}

// Create builds and persists a queued locator for the part. The playlist
// path is derived from the storage root and the part's unique ID, so two
// parts can never collide on disk.
func (s *LocatorService) Create(ctx context.Context, storageRoot string, part domain.Part) (domain.StreamLocator, error) {
	loc := domain.StreamLocator{
		PlaylistPath: filepath.Join(storageRoot, part.ID.String(), s.PlaylistFileName),
		Part:         part,
		State:        domain.JobState{Status: domain.JobQueued},
		CreatedAt:    time.Now().UTC(),
	}
	created, err := s.Repo.Create(ctx, loc)
	if err != nil {
		return domain.StreamLocator{}, wrapRepo(err)
	}
	s.publish(created)
	return created, nil
}

func (s *LocatorService) Get(ctx context.Context, id domain.LocatorID) (domain.StreamLocator, error) {
	loc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.StreamLocator{}, wrapRepo(err)
	}
	return loc, nil
}

func (s *LocatorService) GetByPart(ctx context.Context, partID uuid.UUID) (domain.StreamLocator, error) {
	loc, err := s.Repo.GetByPart(ctx, partID)
	if err != nil {
		return domain.StreamLocator{}, wrapRepo(err)
	}
	return loc, nil
}

// Mutate atomically applies fn to the locator's current state and persists
// the result. Concurrent mutations of the same locator serialize; distinct
// locators proceed in parallel.
func (s *LocatorService) Mutate(ctx context.Context, id domain.LocatorID, fn func(*domain.JobState)) (domain.StreamLocator, error) {
	mu := s.locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	loc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.StreamLocator{}, wrapRepo(err)
	}
	fn(&loc.State)
	loc.State.CompletionRatio = clamp01(loc.State.CompletionRatio)
	if err := s.Repo.Update(ctx, loc); err != nil {
		return domain.StreamLocator{}, wrapRepo(err)
	}
	s.publish(loc)
	return loc, nil
}

// UpdateState replaces the locator's state wholesale.
func (s *LocatorService) UpdateState(ctx context.Context, id domain.LocatorID, state domain.JobState) (domain.StreamLocator, error) {
	return s.Mutate(ctx, id, func(st *domain.JobState) { *st = state })
}

func (s *LocatorService) Delete(ctx context.Context, loc domain.StreamLocator) error {
	if err := s.Repo.Delete(ctx, loc.ID); err != nil {
		return wrapRepo(err)
	}
	s.locks.forget(loc.ID)
	loc.State.Status = domain.JobStopped
	s.publish(loc)
	return nil
}

func (s *LocatorService) publish(loc domain.StreamLocator) {
	if s.Notifier != nil {
		s.Notifier.PublishLocatorStatus(loc)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
