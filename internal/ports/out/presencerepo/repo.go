package presencerepo

import (
	"context"
	"errors"

	"github.com/bodyforce/admin-api/internal/domain"
)

var ErrNotFound = errors.New("presence not found")

type Filter struct {
	Range domain.TimeRange
	// BadgeID restricts to a single badge when non-empty.
	BadgeID domain.BadgeID
}

// Repository provides access to badge scans.
//
// ListPage results are ordered by timestamp then ID so that successive pages
// never overlap.
type Repository interface {
	Create(ctx context.Context, p domain.Presence) error
	Delete(ctx context.Context, id domain.PresenceID) error
	ListPage(ctx context.Context, f Filter, offset, limit int) ([]domain.Presence, error)

	// DeleteDuplicates removes scans sharing a badge and a calendar minute with an
	// earlier scan, keeping the earliest. It returns the number removed.
	DeleteDuplicates(ctx context.Context) (int, error)
}
