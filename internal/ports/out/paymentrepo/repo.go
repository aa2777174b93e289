package paymentrepo

import (
	"context"
	"errors"
	"time"

	"github.com/bodyforce/admin-api/internal/domain"
)

var (
	ErrNotFound      = errors.New("payment not found")
	ErrAlreadyExists = errors.New("payment already exists")
	// ErrUnknownMember is returned when MemberID does not reference a member.
	ErrUnknownMember = errors.New("payment member does not exist")
)

type Filter struct {
	MemberID domain.MemberID
	Paid     *bool
	// DueBefore keeps payments whose expected cash date is strictly before it.
	DueBefore *time.Time
	// Range applies to the payment's effective date (see domain.Payment.EffectiveDate).
	Range domain.TimeRange
}

// Matches reports whether p satisfies f.
func (f Filter) Matches(p domain.Payment) bool {
	if f.MemberID != "" && p.MemberID != f.MemberID {
		return false
	}
	if f.Paid != nil && p.IsPaid != *f.Paid {
		return false
	}
	if f.DueBefore != nil {
		if p.EncaissementPrevu == nil || !p.EncaissementPrevu.Before(*f.DueBefore) {
			return false
		}
	}
	return f.Range.Contains(p.EffectiveDate())
}

// Repository provides access to payments. List orders by effective date
// descending, then ID.
type Repository interface {
	Create(ctx context.Context, p domain.Payment) error
	Update(ctx context.Context, p domain.Payment) error
	Delete(ctx context.Context, id domain.PaymentID) error
	// DeleteByMember removes every payment of the member and reports how many.
	DeleteByMember(ctx context.Context, id domain.MemberID) (int, error)
	GetByID(ctx context.Context, id domain.PaymentID) (domain.Payment, error)
	List(ctx context.Context, f Filter) ([]domain.Payment, error)
}
