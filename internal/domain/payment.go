package domain

import "time"

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "especes"
	PaymentCheque   PaymentMethod = "cheque"
	PaymentCard     PaymentMethod = "carte"
	PaymentTransfer PaymentMethod = "virement"
	PaymentUnknown  PaymentMethod = ""
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCheque, PaymentCard, PaymentTransfer, PaymentUnknown:
		return true
	}
	return false
}

// Payment is an amount owed or received for a member's subscription.
type Payment struct {
	ID       PaymentID
	MemberID MemberID

	Amount float64
	IsPaid bool
	// EncaissementPrevu is the date the gym expects to cash the payment.
	EncaissementPrevu *time.Time
	Method            PaymentMethod
	Comment           string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveDate is the expected cash date when known, otherwise the creation time.
func (p Payment) EffectiveDate() time.Time {
	if p.EncaissementPrevu != nil {
		return *p.EncaissementPrevu
	}
	return p.CreatedAt
}
