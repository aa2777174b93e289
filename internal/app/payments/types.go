package payments

import (
	"time"

	"github.com/bodyforce/admin-api/internal/domain"
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

type CreatePaymentInput struct {
	MemberID          domain.MemberID
	Amount            float64
	IsPaid            bool
	EncaissementPrevu *time.Time
	Method            string
	Comment           string
}

// UpdatePaymentInput is a partial update. Only EncaissementPrevu, Method and
// Comment accept null.
type UpdatePaymentInput struct {
	Amount            Optional[float64]
	IsPaid            Optional[bool]
	EncaissementPrevu Optional[time.Time]
	Method            Optional[string]
	Comment           Optional[string]
}

type ListInput struct {
	MemberID  domain.MemberID
	Paid      *bool
	DueBefore *time.Time
	Range     domain.TimeRange
}

// Summary totals payments by state. Expected is the unpaid amount that has a
// planned cash date; Overdue is the part of it whose date has passed.
type Summary struct {
	Paid        float64
	Unpaid      float64
	Expected    float64
	Overdue     float64
	CountPaid   int
	CountUnpaid int
}
