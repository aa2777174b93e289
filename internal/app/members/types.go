package members

import (
	"time"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

type CreateMemberInput struct {
	Name      string
	FirstName string
	Birthdate *time.Time
	Gender    domain.Gender
	Address   string
	Phone     string
	Mobile    string
	Email     string

	SubscriptionType string
	StartDate        *time.Time
	// EndDate overrides the value derived from StartDate and SubscriptionType.
	EndDate *time.Time

	BadgeID  string
	Photo    string
	Etudiant bool
}

// UpdateMemberInput is a partial update. Name and FirstName cannot be null;
// a null string field is stored as empty.
type UpdateMemberInput struct {
	Name      Optional[string]
	FirstName Optional[string]
	Birthdate Optional[time.Time]
	Gender    Optional[domain.Gender]
	Address   Optional[string]
	Phone     Optional[string]
	Mobile    Optional[string]
	Email     Optional[string]

	SubscriptionType Optional[string]
	StartDate        Optional[time.Time]
	EndDate          Optional[time.Time]

	BadgeID  Optional[string]
	Photo    Optional[string]
	Etudiant Optional[bool]
}

type ListInput struct {
	Query            string
	Status           string
	Etudiant         *bool
	SubscriptionType string
	Limit            int
	Offset           int
}

type ListResult struct {
	Members []domain.Member
	Total   int
}

// Counts is the dashboard headline for the member base.
type Counts struct {
	Total    int
	Active   int
	Expired  int
	Students int
}

func parseStatus(s string) (memberrepo.Status, bool) {
	switch memberrepo.Status(s) {
	case "", memberrepo.StatusAll:
		return memberrepo.StatusAll, true
	case memberrepo.StatusActive:
		return memberrepo.StatusActive, true
	case memberrepo.StatusExpired:
		return memberrepo.StatusExpired, true
	}
	return "", false
}
