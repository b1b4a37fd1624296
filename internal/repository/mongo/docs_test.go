package mongo

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"matchcast/internal/domain"
)

func TestLocatorDocRoundtrip(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	loc := domain.StreamLocator{
		ID:           42,
		PlaylistPath: "/data/streams/src/part/playlist.m3u8",
		Part: domain.Part{
			ID:            uuid.New(),
			Title:         domain.PartFirstHalf,
			ExternalURL:   "https://ext/a",
			InternalURL:   "https://files.example/dl/a",
			LastRefreshed: now,
			Metadata:      "1080p x264",
		},
		State: domain.JobState{
			Status:          domain.JobStreaming,
			CompletionRatio: 0.42,
			Error:           "",
		},
		CreatedAt: now,
	}

	got, err := fromLocatorDoc(toLocatorDoc(loc))
	if err != nil {
		t.Fatalf("fromLocatorDoc: %v", err)
	}
	if !reflect.DeepEqual(got, loc) {
		t.Fatalf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, loc)
	}
}

func TestLocatorDocZeroRefreshTime(t *testing.T) {
	loc := domain.StreamLocator{
		ID:        1,
		Part:      domain.Part{ID: uuid.New(), Title: domain.PartFull},
		State:     domain.JobState{Status: domain.JobQueued},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	got, err := fromLocatorDoc(toLocatorDoc(loc))
	if err != nil {
		t.Fatalf("fromLocatorDoc: %v", err)
	}
	if !got.Part.LastRefreshed.IsZero() {
		t.Fatalf("LastRefreshed = %v, want zero preserved", got.Part.LastRefreshed)
	}
}

func TestPlaylistDocKeepsLocatorOrder(t *testing.T) {
	pl := domain.LocatorPlaylist{
		ID:          7,
		SourceID:    uuid.New(),
		StorageRoot: "/data/streams/src",
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Locators: []domain.StreamLocator{
			{ID: 30}, {ID: 10}, {ID: 20},
		},
	}
	doc := toPlaylistDoc(pl)
	want := []int64{30, 10, 20}
	if !reflect.DeepEqual(doc.LocatorIDs, want) {
		t.Fatalf("locator ids = %v, want stored order %v", doc.LocatorIDs, want)
	}
}

func TestEventDocRoundtrip(t *testing.T) {
	now := time.Date(2026, 8, 29, 20, 45, 0, 0, time.UTC)
	ev := domain.Event{
		ID:    uuid.New(),
		Title: "FC Example vs Test United",
		Kind:  domain.EventMatch,
		Date:  now,
		Competition: domain.Competition{
			ID:      uuid.New(),
			Name:    "Premier League",
			Country: domain.Country{Name: "England", Locales: []string{"en_GB"}},
		},
		Match: &domain.MatchDetail{
			HomeTeam: domain.Team{ID: uuid.New(), Name: "FC Example", Country: domain.Country{Name: "England", Locales: []string{"en_GB"}}},
			AwayTeam: domain.Team{ID: uuid.New(), Name: "Test United", Country: domain.Country{Name: "Wales", Locales: []string{"cy_GB"}}},
		},
		Sources: []domain.VideoSource{{
			ID:          uuid.New(),
			Channel:     "Sky Sports",
			Languages:   "English",
			Resolution:  domain.Res1080p,
			VideoCodec:  "h264",
			AudioCodec:  "aac",
			BitrateKbps: 8000,
			Duration:    110 * time.Minute,
			Packs: []domain.PartPack{{Parts: []domain.Part{
				{ID: uuid.New(), Title: domain.PartFirstHalf, ExternalURL: "https://ext/1"},
				{ID: uuid.New(), Title: domain.PartSecondHalf, ExternalURL: "https://ext/2"},
			}}},
		}},
	}

	got, err := fromEventDoc(toEventDoc(ev))
	if err != nil {
		t.Fatalf("fromEventDoc: %v", err)
	}
	if !reflect.DeepEqual(got, ev) {
		t.Fatalf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, ev)
	}
}

func TestFromPartDocRejectsBadID(t *testing.T) {
	if _, err := fromPartDoc(partDoc{ID: "not-a-uuid"}); err == nil {
		t.Fatal("expected an error for a malformed part id")
	}
}
