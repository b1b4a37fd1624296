package ports

import (
	"context"
	"time"

	"matchcast/internal/domain"
)

// FileServer is one remote-file capability: it turns an external part URL
// into a downloadable internal URL.
type FileServer interface {
	ID() string
	Hostname() string
	// Accepts reports whether this server can resolve the given external URL.
	Accepts(externalURL string) bool
	ResolveDownloadURL(ctx context.Context, externalURL string) (string, error)
	// RefreshInterval is how long a resolved internal URL stays valid.
	RefreshInterval() time.Duration
}

// FileResolver selects among registered file servers and refreshes parts.
type FileResolver interface {
	// EnabledServerFor returns an enabled server accepting the URL, or false.
	EnabledServerFor(externalURL string) (FileServer, bool)
	ListEnabled() []FileServer
	// Refresh resolves the part's internal URL if stale. A concurrent refresh
	// of the same part fails fast with domain.ErrRefreshInProgress.
	Refresh(ctx context.Context, part domain.Part) (domain.Part, error)
}
