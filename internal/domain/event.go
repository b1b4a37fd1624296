package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type EventKind string

const (
	EventMatch     EventKind = "match"
	EventHighlight EventKind = "highlight"
)

// Country carries the locale tags (e.g. "en_GB") used to rank video sources
// by language affinity.
type Country struct {
	Name    string   `json:"name"`
	Locales []string `json:"locales"`
}

// Languages resolves the country's locale tags to English language names
// ("en_GB" -> "English"). Unparseable tags are skipped.
func (c Country) Languages() []string {
	names := make([]string, 0, len(c.Locales))
	for _, locale := range c.Locales {
		tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		if name := display.English.Languages().Name(base); name != "" {
			names = append(names, name)
		}
	}
	return names
}

type Competition struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Country Country   `json:"country"`
}

type Team struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Country Country   `json:"country"`
}

// MatchDetail is present only on events of kind EventMatch.
type MatchDetail struct {
	HomeTeam Team `json:"homeTeam"`
	AwayTeam Team `json:"awayTeam"`
}

// Event is one logical media item: a match or a highlight show.
// Kind is a closed variant; Match is non-nil iff Kind == EventMatch.
type Event struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Kind        EventKind     `json:"kind"`
	Date        time.Time     `json:"date"`
	Competition Competition   `json:"competition"`
	Match       *MatchDetail  `json:"match,omitempty"`
	Sources     []VideoSource `json:"sources"`
}

// LocalePriority lists the countries whose languages rank a source, in
// priority order: the competition first, then home and away team for matches.
func (e Event) LocalePriority() []Country {
	countries := []Country{e.Competition.Country}
	switch e.Kind {
	case EventMatch:
		if e.Match != nil {
			countries = append(countries, e.Match.HomeTeam.Country, e.Match.AwayTeam.Country)
		}
	case EventHighlight:
		// Highlight shows carry no team affiliation.
	}
	return countries
}

// Source returns the event's source with the given ID, or false.
func (e Event) Source(sourceID uuid.UUID) (VideoSource, bool) {
	for _, src := range e.Sources {
		if src.ID == sourceID {
			return src, true
		}
	}
	return VideoSource{}, false
}
