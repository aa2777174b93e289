package domain

import "strings"

// NormalizeHumanName collapses whitespace runs in member names.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeBadgeID trims what badge readers pad around the scanned code.
func NormalizeBadgeID(s string) BadgeID {
	return BadgeID(strings.TrimSpace(s))
}

// NormalizeEmail is the form emails are compared and stored in.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
