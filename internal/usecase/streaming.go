package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
)

// StreamingService is the caller-facing entry point: it resolves events to
// playable client playlists, creating and starting transcoding jobs on
// demand, and exposes kill and delete operations by source or locator.
type StreamingService struct {
	Events       ports.EventRepository
	Selector     *Selector
	Playlists    *PlaylistService
	Orchestrator *Orchestrator
	Advisor      *DelayAdvisor
	Log          *slog.Logger

	// URIPattern formats the client-visible playlist URI of one locator.
	// It receives the locator ID.
	URIPattern string
}

// StreamStatus couples the rendered playlist with readiness information.
type StreamStatus struct {
	Playlist domain.ClientPlaylist `json:"playlist"`
	State    domain.JobState       `json:"state"`
	Ready    bool                  `json:"ready"`
	RetryIn  time.Duration         `json:"retryInNanos"`
}

// BestStream returns the client playlist for the event's best source. A
// locator playlist already existing for any of the event's sources is reused,
// whatever its quality, so work in flight is never abandoned. Only when no
// source has one is the best source selected and a new playlist started.
func (s *StreamingService) BestStream(ctx context.Context, eventID uuid.UUID) (domain.ClientPlaylist, error) {
	ev, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return domain.ClientPlaylist{}, wrapRepo(err)
	}
	if len(ev.Sources) == 0 {
		return domain.ClientPlaylist{}, fmt.Errorf("%w: event %s", domain.ErrEmptySource, eventID)
	}
	for _, src := range ev.Sources {
		pl, err := s.Playlists.GetBySource(ctx, src.ID)
		if err == nil {
			return s.render(ev.ID, pl), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.ClientPlaylist{}, err
		}
	}
	src := s.Selector.BestSource(ev)
	return s.streamSource(ctx, ev, src)
}

// StreamFor returns the client playlist for one specific video source.
func (s *StreamingService) StreamFor(ctx context.Context, sourceID uuid.UUID) (domain.ClientPlaylist, error) {
	ev, err := s.Events.GetBySource(ctx, sourceID)
	if err != nil {
		return domain.ClientPlaylist{}, wrapRepo(err)
	}
	src, ok := ev.Source(sourceID)
	if !ok {
		return domain.ClientPlaylist{}, fmt.Errorf("%w: source %s", domain.ErrNotFound, sourceID)
	}
	return s.streamSource(ctx, ev, src)
}

func (s *StreamingService) streamSource(ctx context.Context, ev domain.Event, src domain.VideoSource) (domain.ClientPlaylist, error) {
	pl, err := s.Playlists.GetBySource(ctx, src.ID)
	switch {
	case err == nil:
		return s.render(ev.ID, pl), nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		return domain.ClientPlaylist{}, err
	}

	pl, err = s.Playlists.Create(ctx, src)
	if err != nil {
		return domain.ClientPlaylist{}, err
	}
	if err := s.Orchestrator.StartStream(ctx, pl); err != nil {
		return domain.ClientPlaylist{}, err
	}
	return s.render(ev.ID, pl), nil
}

// Status reports the readiness and retry advice of the source's stream.
func (s *StreamingService) Status(ctx context.Context, sourceID uuid.UUID) (StreamStatus, error) {
	pl, err := s.Playlists.GetBySource(ctx, sourceID)
	if err != nil {
		return StreamStatus{}, err
	}
	ev, err := s.Events.GetBySource(ctx, sourceID)
	if err != nil {
		return StreamStatus{}, wrapRepo(err)
	}

	status := StreamStatus{
		Playlist: s.render(ev.ID, pl),
		State:    pl.State(),
		Ready:    s.Advisor.IsReady(pl),
	}
	if !status.Ready {
		retry, err := s.Advisor.DelayAdvice(ctx, pl)
		if err != nil && !errors.Is(err, ErrStreamErrored) {
			return StreamStatus{}, err
		}
		status.RetryIn = retry
	}
	return status, nil
}

// KillFor stops every member job of the source's playlist.
func (s *StreamingService) KillFor(ctx context.Context, sourceID uuid.UUID) error {
	pl, err := s.Playlists.GetBySource(ctx, sourceID)
	if err != nil {
		return err
	}
	s.Orchestrator.KillAllFor(ctx, pl)
	return nil
}

// KillOne stops a single locator's job.
func (s *StreamingService) KillOne(ctx context.Context, id domain.LocatorID) error {
	loc, err := s.Orchestrator.Locators.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Orchestrator.Kill(ctx, loc)
	return nil
}

// DeleteFor removes the source's playlist, records and data included.
func (s *StreamingService) DeleteFor(ctx context.Context, sourceID uuid.UUID) error {
	pl, err := s.Playlists.GetBySource(ctx, sourceID)
	if err != nil {
		return err
	}
	return s.Orchestrator.DeleteAll(ctx, pl)
}

// DeleteOne removes a single locator, records and data included.
func (s *StreamingService) DeleteOne(ctx context.Context, id domain.LocatorID) error {
	loc, err := s.Orchestrator.Locators.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.Orchestrator.DeleteOne(ctx, loc)
}

func (s *StreamingService) render(eventID uuid.UUID, pl domain.LocatorPlaylist) domain.ClientPlaylist {
	out := domain.ClientPlaylist{EventID: eventID, SourceID: pl.SourceID}
	for _, loc := range pl.Locators {
		out.Entries = append(out.Entries, domain.ClientPlaylistEntry{
			LocatorID: loc.ID,
			Part:      loc.Part.Title,
			URI:       fmt.Sprintf(s.URIPattern, loc.ID),
		})
	}
	return out
}
