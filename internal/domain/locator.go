package domain

import (
	"time"

	"github.com/google/uuid"
)

type LocatorID int64

// StreamLocator tracks one transcoding job producing a single part's local
// playlist and segments.
type StreamLocator struct {
	ID           LocatorID `json:"id"`
	PlaylistPath string    `json:"playlistPath"`
	Part         Part      `json:"part"`
	State        JobState  `json:"state"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LocatorPlaylist aggregates every stream locator created for one video
// source. The storage root directory is exclusively owned by the playlist.
type LocatorPlaylist struct {
	ID          int64           `json:"id"`
	SourceID    uuid.UUID       `json:"sourceId"`
	StorageRoot string          `json:"storageRoot"`
	CreatedAt   time.Time       `json:"createdAt"`
	Locators    []StreamLocator `json:"locators"`
}

// State reduces the member locator states into the aggregate job state.
func (p LocatorPlaylist) State() JobState {
	states := make([]JobState, len(p.Locators))
	for i, loc := range p.Locators {
		states[i] = loc.State
	}
	return ReduceStates(states)
}

// Locator returns the member with the given ID, or false.
func (p LocatorPlaylist) Locator(id LocatorID) (StreamLocator, bool) {
	for _, loc := range p.Locators {
		if loc.ID == id {
			return loc, true
		}
	}
	return StreamLocator{}, false
}
