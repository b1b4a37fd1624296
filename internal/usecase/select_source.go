package usecase

import (
	"fmt"
	"sort"

	"matchcast/internal/domain"
	"matchcast/internal/domain/ports"
)

// Selector picks the best video source for an event and the best part pack
// within a source. Sources are ranked by resolution first, then by how well
// their primary language matches the event's locales in priority order.
type Selector struct {
	Files ports.FileResolver
}

// BestSource returns the top-ranked source. Callers must not pass an event
// without sources.
func (s *Selector) BestSource(ev domain.Event) domain.VideoSource {
	sorted := make([]domain.VideoSource, len(ev.Sources))
	copy(sorted, ev.Sources)

	countries := ev.LocalePriority()
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ra, rb := a.Resolution.Rank(), b.Resolution.Rank(); ra != rb {
			return ra < rb
		}
		for _, country := range countries {
			if c := compareLanguageMatch(country, a.PrimaryLanguage(), b.PrimaryLanguage()); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return sorted[0]
}

// BestPartPack prefers the first pack whose first part is servable by an
// enabled file server; packs without any enabled server keep their relative
// order and the first pack wins as fallback.
func (s *Selector) BestPartPack(src domain.VideoSource) (domain.PartPack, error) {
	if len(src.Packs) == 0 {
		return domain.PartPack{}, fmt.Errorf("%w: source %s", domain.ErrEmptySource, src.ID)
	}

	sorted := make([]domain.PartPack, len(src.Packs))
	copy(sorted, src.Packs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return s.packServable(sorted[i]) && !s.packServable(sorted[j])
	})

	best := sorted[0]
	if len(best.Parts) == 0 {
		return domain.PartPack{}, fmt.Errorf("%w: source %s", domain.ErrEmptySource, src.ID)
	}
	return best, nil
}

func (s *Selector) packServable(pack domain.PartPack) bool {
	first, ok := pack.First()
	if !ok || s.Files == nil {
		return false
	}
	_, ok = s.Files.EnabledServerFor(first.ExternalURL)
	return ok
}

// compareLanguageMatch returns -1 when only a matches one of the country's
// languages, 1 when only b does, 0 otherwise.
func compareLanguageMatch(country domain.Country, a, b string) int {
	var aMatch, bMatch bool
	for _, lang := range country.Languages() {
		if lang == a {
			aMatch = true
		}
		if lang == b {
			bMatch = true
		}
	}
	switch {
	case aMatch && !bMatch:
		return -1
	case bMatch && !aMatch:
		return 1
	default:
		return 0
	}
}
