package domain

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMember   Role = "member"
	// RoleTerminal is a badge reader. It may record scans and nothing else.
	RoleTerminal Role = "terminal"
)

// User is an authentication account. Members obtain one by accepting an invitation.
type User struct {
	ID           UserID
	Email        string
	PasswordHash []byte
	Role         Role
	MemberID     *MemberID
	CreatedAt    time.Time
}
