package domain

import "time"

type Gender string

const (
	GenderMale   Gender = "Homme"
	GenderFemale Gender = "Femme"
	GenderOther  Gender = ""
)

type InvitationStatus string

const (
	InvitationNone     InvitationStatus = "none"
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
	InvitationRevoked  InvitationStatus = "revoked"
)

// MemberFile is a document attached to a member (medical certificate, waiver, ...).
// Path is the object key inside the documents bucket.
type MemberFile struct {
	Name string
	URL  string
	Path string
}

// Invitation tracks the self-registration workflow for a member.
// Token is empty once the invitation has been accepted or revoked.
type Invitation struct {
	Token      string
	Status     InvitationStatus
	SentAt     *time.Time
	ExpiresAt  *time.Time
	AcceptedAt *time.Time
}

// Member is the domain representation of a gym member.
type Member struct {
	ID MemberID

	Name      string
	FirstName string
	Birthdate *time.Time // date-only semantics
	Gender    Gender
	Address   string
	Phone     string
	Mobile    string
	Email     string

	SubscriptionType SubscriptionType
	StartDate        *time.Time // date-only semantics
	EndDate          *time.Time // date-only semantics

	BadgeID BadgeID
	Files   []MemberFile
	// Photo is either an absolute URL or a storage path (see files.ResolvePhoto).
	Photo    string
	Etudiant bool

	Invitation Invitation

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName returns "FirstName Name" with surrounding whitespace removed.
func (m Member) FullName() string {
	return NormalizeHumanName(m.FirstName + " " + m.Name)
}

// Expired reports whether the member's subscription is over at now.
func (m Member) Expired(now time.Time) bool {
	return IsExpired(m.EndDate, now)
}

// MemberSummary is the short projection used by reports and planning views.
type MemberSummary struct {
	ID        MemberID
	Name      string
	FirstName string
	BadgeID   BadgeID
}

func (m Member) Summary() MemberSummary {
	return MemberSummary{ID: m.ID, Name: m.Name, FirstName: m.FirstName, BadgeID: m.BadgeID}
}
