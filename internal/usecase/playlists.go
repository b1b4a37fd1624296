package usecase

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
)

// PlaylistService creates and maintains locator playlists, the per-source
// aggregates owning the storage directory on disk.
type PlaylistService struct {
	Repo        ports.PlaylistRepository
	Locators    *LocatorService
	Selector    *Selector
	StorageRoot string
	Log         *slog.Logger
}

// Create selects the best part pack of the source and builds one queued
// locator per part, ordered by the part's position in the event timeline.
func (s *PlaylistService) Create(ctx context.Context, src domain.VideoSource) (domain.LocatorPlaylist, error) {
	pack, err := s.Selector.BestPartPack(src)
	if err != nil {
		return domain.LocatorPlaylist{}, err
	}

	parts := make([]domain.Part, len(pack.Parts))
	copy(parts, pack.Parts)
	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].Title.Order() < parts[j].Title.Order()
	})

	pl := domain.LocatorPlaylist{
		SourceID:    src.ID,
		StorageRoot: filepath.Join(s.StorageRoot, src.ID.String()),
		CreatedAt:   time.Now().UTC(),
	}
	for _, part := range parts {
		loc, err := s.Locators.Create(ctx, pl.StorageRoot, part)
		if err != nil {
			return domain.LocatorPlaylist{}, err
		}
		pl.Locators = append(pl.Locators, loc)
	}

	created, err := s.Repo.Create(ctx, pl)
	if err != nil {
		return domain.LocatorPlaylist{}, wrapRepo(err)
	}
	s.Log.Info("created locator playlist",
		"playlistId", created.ID, "sourceId", src.ID, "locators", len(created.Locators))
	return created, nil
}

// GetBySource returns the most recent playlist for a source, or
// domain.ErrNotFound when the source was never streamed.
func (s *PlaylistService) GetBySource(ctx context.Context, sourceID uuid.UUID) (domain.LocatorPlaylist, error) {
	pl, err := s.Repo.GetBySource(ctx, sourceID)
	if err != nil {
		return domain.LocatorPlaylist{}, wrapRepo(err)
	}
	return pl, nil
}

// GetContaining resolves the playlist owning a member locator.
func (s *PlaylistService) GetContaining(ctx context.Context, locatorID domain.LocatorID) (domain.LocatorPlaylist, error) {
	pl, err := s.Repo.GetContaining(ctx, locatorID)
	if err != nil {
		return domain.LocatorPlaylist{}, wrapRepo(err)
	}
	return pl, nil
}

func (s *PlaylistService) List(ctx context.Context) ([]domain.LocatorPlaylist, error) {
	pls, err := s.Repo.List(ctx)
	if err != nil {
		return nil, wrapRepo(err)
	}
	return pls, nil
}

func (s *PlaylistService) Update(ctx context.Context, pl domain.LocatorPlaylist) error {
	return wrapRepo(s.Repo.Update(ctx, pl))
}

// Delete removes the playlist record and every member locator record.
// Callers remove on-disk data separately, after the records are gone.
func (s *PlaylistService) Delete(ctx context.Context, pl domain.LocatorPlaylist) error {
	if err := s.Repo.Delete(ctx, pl.ID); err != nil {
		return wrapRepo(err)
	}
	for _, loc := range pl.Locators {
		if err := s.Locators.Delete(ctx, loc); err != nil {
			return err
		}
	}
	return nil
}
