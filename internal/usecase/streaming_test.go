package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"matchcast/internal/domain"
)

type streamingEnv struct {
	svc    *StreamingService
	env    *orchEnv
	events *fakeEventRepo
}

func newStreamingEnv(t *testing.T) *streamingEnv {
	t.Helper()
	env := newOrchEnv(t)
	events := &fakeEventRepo{events: make(map[uuid.UUID]domain.Event)}
	return &streamingEnv{
		svc: &StreamingService{
			Events:       events,
			Selector:     env.playlists.Selector,
			Playlists:    env.playlists,
			Orchestrator: env.orch,
			Advisor:      newAdvisor(),
			Log:          discardLogger(),
			URIPattern:   "/streams/locators/%d/playlist.m3u8",
		},
		env:    env,
		events: events,
	}
}

func (s *streamingEnv) seedEvent(t *testing.T) (domain.Event, domain.VideoSource) {
	t.Helper()
	src := domain.VideoSource{
		ID:         uuid.New(),
		Resolution: domain.Res1080p,
		Languages:  "English",
		Packs: []domain.PartPack{{Parts: []domain.Part{
			{ID: uuid.New(), Title: domain.PartFirstHalf, ExternalURL: "https://src/1"},
			{ID: uuid.New(), Title: domain.PartSecondHalf, ExternalURL: "https://src/2"},
		}}},
	}
	ev := matchEvent(src)
	s.events.events[ev.ID] = ev
	return ev, src
}

func TestBestStreamCreatesAndStarts(t *testing.T) {
	s := newStreamingEnv(t)
	ev, src := s.seedEvent(t)

	got, err := s.svc.BestStream(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("BestStream: %v", err)
	}
	if got.EventID != ev.ID || got.SourceID != src.ID {
		t.Fatalf("playlist ids = %v/%v, want %v/%v", got.EventID, got.SourceID, ev.ID, src.ID)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(got.Entries))
	}
	if got.Entries[0].Part != domain.PartFirstHalf {
		t.Fatalf("first entry = %s, want ordered first-half", got.Entries[0].Part)
	}
	if !strings.Contains(got.Entries[0].URI, "/streams/locators/") {
		t.Fatalf("entry URI = %q", got.Entries[0].URI)
	}

	// The scripted jobs finish immediately; every member must have been
	// driven to a terminal state.
	for _, entry := range got.Entries {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			loc, err := s.env.locators.Get(context.Background(), entry.LocatorID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if loc.State.Status.Terminal() {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestBestStreamReusesExistingPlaylist(t *testing.T) {
	s := newStreamingEnv(t)
	ev, _ := s.seedEvent(t)

	first, err := s.svc.BestStream(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("first BestStream: %v", err)
	}
	second, err := s.svc.BestStream(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("second BestStream: %v", err)
	}
	if first.Entries[0].LocatorID != second.Entries[0].LocatorID {
		t.Fatal("expected the existing playlist to be reused")
	}
	if got := len(s.env.plRepo.byID); got != 1 {
		t.Fatalf("playlist records = %d, want 1", got)
	}
}

func TestBestStreamReusesInFlightSource(t *testing.T) {
	s := newStreamingEnv(t)
	sd := domain.VideoSource{
		ID:         uuid.New(),
		Resolution: domain.ResSD,
		Packs: []domain.PartPack{{Parts: []domain.Part{
			{ID: uuid.New(), Title: domain.PartFull, ExternalURL: "https://src/sd"},
		}}},
	}
	hd := domain.VideoSource{
		ID:         uuid.New(),
		Resolution: domain.Res1080p,
		Packs: []domain.PartPack{{Parts: []domain.Part{
			{ID: uuid.New(), Title: domain.PartFull, ExternalURL: "https://src/hd"},
		}}},
	}
	ev := matchEvent(sd, hd)
	s.events.events[ev.ID] = ev

	// A stream for the lower-quality source is already under way.
	if _, err := s.svc.StreamFor(context.Background(), sd.ID); err != nil {
		t.Fatalf("StreamFor: %v", err)
	}

	got, err := s.svc.BestStream(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("BestStream: %v", err)
	}
	if got.SourceID != sd.ID {
		t.Fatalf("BestStream source = %s, want the in-flight %s", got.SourceID, sd.ID)
	}
	if n := len(s.env.plRepo.byID); n != 1 {
		t.Fatalf("playlist records = %d, want 1", n)
	}
}

func TestBestStreamNoSources(t *testing.T) {
	s := newStreamingEnv(t)
	ev := matchEvent()
	s.events.events[ev.ID] = ev

	_, err := s.svc.BestStream(context.Background(), ev.ID)
	if !errors.Is(err, domain.ErrEmptySource) {
		t.Fatalf("error = %v, want ErrEmptySource", err)
	}
}

func TestStreamForUnknownSource(t *testing.T) {
	s := newStreamingEnv(t)
	_, err := s.svc.StreamFor(context.Background(), uuid.New())
	if !errors.Is(err, ErrRepository) {
		t.Fatalf("error = %v, want a repository error", err)
	}
}

func TestStatusReportsRetryAdvice(t *testing.T) {
	s := newStreamingEnv(t)
	ev, src := s.seedEvent(t)

	if _, err := s.svc.BestStream(context.Background(), ev.ID); err != nil {
		t.Fatalf("BestStream: %v", err)
	}
	st, err := s.svc.Status(context.Background(), src.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Ready {
		// Jobs complete instantly with the scripted transcoder.
		if st.State.Status != domain.JobCompleted {
			t.Fatalf("ready but status = %s", st.State.Status)
		}
		return
	}
	if st.RetryIn <= 0 {
		t.Fatalf("retry advice = %v, want positive", st.RetryIn)
	}
}
