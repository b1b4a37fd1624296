package ports

import (
	"context"

	"github.com/google/uuid"

	"matchcast/internal/domain"
)

type EventRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Event, error)
	// GetBySource resolves the event owning the given video source.
	GetBySource(ctx context.Context, sourceID uuid.UUID) (domain.Event, error)
}

type LocatorRepository interface {
	// Create persists the locator and assigns its numeric ID.
	Create(ctx context.Context, loc domain.StreamLocator) (domain.StreamLocator, error)
	Get(ctx context.Context, id domain.LocatorID) (domain.StreamLocator, error)
	// GetByPart returns the most recent locator for the given part.
	GetByPart(ctx context.Context, partID uuid.UUID) (domain.StreamLocator, error)
	Update(ctx context.Context, loc domain.StreamLocator) error
	Delete(ctx context.Context, id domain.LocatorID) error
}

type PlaylistRepository interface {
	// Create persists the aggregate record and assigns its numeric ID.
	// Member locators must already exist.
	Create(ctx context.Context, pl domain.LocatorPlaylist) (domain.LocatorPlaylist, error)
	// GetBySource returns the most recent playlist for a source.
	GetBySource(ctx context.Context, sourceID uuid.UUID) (domain.LocatorPlaylist, error)
	// GetContaining is the reverse lookup from a member locator.
	GetContaining(ctx context.Context, locatorID domain.LocatorID) (domain.LocatorPlaylist, error)
	List(ctx context.Context) ([]domain.LocatorPlaylist, error)
	Update(ctx context.Context, pl domain.LocatorPlaylist) error
	Delete(ctx context.Context, id int64) error
}
