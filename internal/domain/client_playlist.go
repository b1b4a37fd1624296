package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ClientPlaylistEntry maps one locator to the URI a client fetches it from.
type ClientPlaylistEntry struct {
	LocatorID LocatorID `json:"locatorId"`
	Part      PartID    `json:"part"`
	URI       string    `json:"uri"`
}

// ClientPlaylist is the rendered, caller-facing view of a locator playlist.
// It is produced on demand and never persisted.
type ClientPlaylist struct {
	EventID  uuid.UUID             `json:"eventId"`
	SourceID uuid.UUID             `json:"sourceId"`
	Entries  []ClientPlaylistEntry `json:"entries"`
}

// M3U renders the entries as a simple extended M3U document.
func (p ClientPlaylist) M3U() string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, e := range p.Entries {
		fmt.Fprintf(&b, "#EXTINF:-1,%s\n%s\n", e.Part, e.URI)
	}
	return b.String()
}
