package domain

// SubjectID is the authenticated subject extracted from bearer token claims ("sub").
// For accounts issued by this service it is the string form of a UserID.
type SubjectID string

// MemberID is an internal identifier for a member record.
type MemberID string

// PresenceID is an internal identifier for a single attendance record.
type PresenceID string

// PaymentID is an internal identifier for a payment record.
type PaymentID string

// UserID is an internal identifier for an authentication account.
type UserID string

// BadgeID is the physical access-badge identifier printed on a member card.
// Presences reference members through it; the link is not enforced.
type BadgeID string
