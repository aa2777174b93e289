package domain

import "time"

// Presence is a single badge scan at the gym entrance.
type Presence struct {
	ID        PresenceID
	BadgeID   BadgeID
	Timestamp time.Time
}

// TimeRange is a half-open interval [From, To). A zero bound is unbounded.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// DayRange returns [start 00:00, end+1day 00:00) so that end is inclusive.
func DayRange(start, end time.Time) TimeRange {
	return TimeRange{From: DateOnly(start), To: DateOnly(end).AddDate(0, 0, 1)}
}

// DayRangeIn is DayRange for the calendar dates of start and end, with days
// starting at local midnight in loc.
func DayRangeIn(start, end time.Time, loc *time.Location) TimeRange {
	return TimeRange{From: StartOfDay(start, loc), To: StartOfDay(end, loc).AddDate(0, 0, 1)}
}
