package domain

import (
	"fmt"
	"strings"
	"time"
)

type SubscriptionType string

const (
	SubscriptionMonthly    SubscriptionType = "Mensuel"
	SubscriptionQuarterly  SubscriptionType = "Trimestriel"
	SubscriptionSemiAnnual SubscriptionType = "Semestriel"
	SubscriptionAnnual     SubscriptionType = "Annuel"
	SubscriptionCalendar   SubscriptionType = "Année civile"
)

// SubscriptionTypes lists the known billing periods in display order.
var SubscriptionTypes = []SubscriptionType{
	SubscriptionMonthly,
	SubscriptionQuarterly,
	SubscriptionSemiAnnual,
	SubscriptionAnnual,
	SubscriptionCalendar,
}

var subscriptionMonths = map[SubscriptionType]int{
	SubscriptionMonthly:    1,
	SubscriptionQuarterly:  3,
	SubscriptionSemiAnnual: 6,
	SubscriptionAnnual:     12,
}

// ParseSubscriptionType matches s against the known types, ignoring case and
// surrounding whitespace.
func ParseSubscriptionType(s string) (SubscriptionType, error) {
	s = strings.TrimSpace(s)
	for _, t := range SubscriptionTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown subscription type %q", s)
}

func (t SubscriptionType) Valid() bool {
	_, err := ParseSubscriptionType(string(t))
	return err == nil
}

// ComputeEndDate derives the last day of a subscription period.
//
// "Année civile" ends on December 31 of the start year. Other types end N months
// after start minus one day. Month addition overflows like a calendar would
// (January 31 + 1 month is March 3), so January 31 Mensuel ends on March 2.
func ComputeEndDate(start time.Time, t SubscriptionType) (time.Time, error) {
	start = DateOnly(start)
	if t == SubscriptionCalendar {
		return time.Date(start.Year(), time.December, 31, 0, 0, 0, 0, start.Location()), nil
	}
	months, ok := subscriptionMonths[t]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown subscription type %q", t)
	}
	return start.AddDate(0, months, -1), nil
}

// IsExpired reports whether a subscription ending at end is over at now.
// A missing end date counts as expired.
func IsExpired(end *time.Time, now time.Time) bool {
	if end == nil || end.IsZero() {
		return true
	}
	return end.Before(now)
}

// IsExpiredRaw applies IsExpired to a stored date string. Values ParseDate cannot
// read count as expired.
func IsExpiredRaw(raw string, now time.Time) bool {
	t, err := ParseDate(raw)
	if err != nil {
		return true
	}
	return IsExpired(&t, now)
}
