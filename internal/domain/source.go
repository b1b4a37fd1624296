package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PartID identifies a part's position within a source's coverage.
type PartID string

const (
	PartPreMatch   PartID = "pre-match"
	PartFirstHalf  PartID = "first-half"
	PartSecondHalf PartID = "second-half"
	PartExtraTime  PartID = "extra-time"
	PartTrophy     PartID = "trophy-ceremony"
	PartPostMatch  PartID = "post-match"
	PartFull       PartID = "full-coverage"
)

// Order is the natural playback position of a part. Unknown identifiers
// sort last.
func (p PartID) Order() int {
	switch p {
	case PartPreMatch:
		return 0
	case PartFirstHalf, PartFull:
		return 1
	case PartSecondHalf:
		return 2
	case PartExtraTime:
		return 3
	case PartTrophy:
		return 4
	case PartPostMatch:
		return 5
	default:
		return 6
	}
}

// Part is one remotely-hosted file comprising part of a source.
// InternalURL is empty until resolved by a file-server capability.
type Part struct {
	ID            uuid.UUID `json:"id"`
	Title         PartID    `json:"title"`
	ExternalURL   string    `json:"externalUrl"`
	InternalURL   string    `json:"internalUrl,omitempty"`
	LastRefreshed time.Time `json:"lastRefreshed,omitempty"`
	Metadata      string    `json:"metadata,omitempty"`
}

// PartPack is one deliverable grouping of parts, in natural order.
type PartPack struct {
	Parts []Part `json:"parts"`
}

func (p PartPack) First() (Part, bool) {
	if len(p.Parts) == 0 {
		return Part{}, false
	}
	return p.Parts[0], true
}

type Resolution string

const (
	Res4K    Resolution = "4K"
	Res1080p Resolution = "1080p"
	Res720p  Resolution = "720p"
	Res576p  Resolution = "576p"
	ResSD    Resolution = "SD"
)

// Rank orders resolutions best-first; smaller is better.
func (r Resolution) Rank() int {
	switch r {
	case Res4K:
		return 0
	case Res1080p:
		return 1
	case Res720p:
		return 2
	case Res576p:
		return 3
	default:
		return 4
	}
}

// VideoSource is one quality/channel/language variant of an event's video.
type VideoSource struct {
	ID          uuid.UUID     `json:"id"`
	Channel     string        `json:"channel"`
	Languages   string        `json:"languages"`
	Resolution  Resolution    `json:"resolution"`
	VideoCodec  string        `json:"videoCodec,omitempty"`
	AudioCodec  string        `json:"audioCodec,omitempty"`
	BitrateKbps int64         `json:"bitrateKbps,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Packs       []PartPack    `json:"packs"`
}

// PrimaryLanguage is the first whitespace-separated language token,
// e.g. "English" for "English Spanish".
func (s VideoSource) PrimaryLanguage() string {
	fields := strings.Fields(s.Languages)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
