package memberrepo

import (
	"context"
	"time"

	"github.com/bodyforce/admin-api/internal/domain"
)

// Status selects members by subscription state relative to Filter.Now.
type Status string

const (
	StatusAll     Status = "all"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Filter is the single member-list query shared by every view.
type Filter struct {
	// Query is split on whitespace; every token must match (case-insensitive substring)
	// one of name, firstName, email or badgeId.
	Query            string
	Status           Status
	Etudiant         *bool
	SubscriptionType domain.SubscriptionType
	// Now is the reference instant for Status.
	Now time.Time

	// Limit <= 0 means no limit.
	Limit  int
	Offset int
}

// Page is one slice of a filtered list plus the total number of matches.
type Page struct {
	Members []domain.Member
	Total   int
}

// Repository provides access to persisted members.
//
// List results are ordered by lower(name), lower(firstName), then ID.
type Repository interface {
	Create(ctx context.Context, m domain.Member) error
	Update(ctx context.Context, m domain.Member) error
	Delete(ctx context.Context, id domain.MemberID) error

	GetByID(ctx context.Context, id domain.MemberID) (domain.Member, error)
	GetByBadge(ctx context.Context, badge domain.BadgeID) (domain.Member, error)
	GetByInvitationToken(ctx context.Context, token string) (domain.Member, error)

	List(ctx context.Context, f Filter) (Page, error)
}
