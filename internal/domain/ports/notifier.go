package ports

import "matchcast/internal/domain"

// StatusNotifier publishes locator state changes to live status displays.
// Publishing is fire-and-forget and never required for correctness.
type StatusNotifier interface {
	PublishLocatorStatus(loc domain.StreamLocator)
}
