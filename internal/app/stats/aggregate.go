package stats

import (
	"sort"
	"time"

	"github.com/bodyforce/admin-api/internal/domain"
)

// Bucket is a labelled count. Keys sort chronologically as strings.
type Bucket struct {
	Key   string
	Count int
}

// TopEntry is one line of the most-frequent-visitors list. Member is nil when the
// badge belongs to nobody.
type TopEntry struct {
	BadgeID domain.BadgeID
	Member  *domain.MemberSummary
	Count   int
}

// Aggregator accumulates presence counts in a single pass. Hours, weekdays,
// days and months are read in the aggregator's location, or in each
// timestamp's own location when it has none.
type Aggregator struct {
	loc    *time.Location
	total  int
	hours  [24]int
	days   [7]int
	months map[string]int
	dates  map[string]int
	badges map[domain.BadgeID]int
	order  []domain.BadgeID
}

func NewAggregator() *Aggregator {
	return NewAggregatorIn(nil)
}

// NewAggregatorIn buckets timestamps in the gym's local time.
func NewAggregatorIn(loc *time.Location) *Aggregator {
	return &Aggregator{
		loc:    loc,
		months: make(map[string]int),
		dates:  make(map[string]int),
		badges: make(map[domain.BadgeID]int),
	}
}

func (a *Aggregator) Add(ps ...domain.Presence) {
	for _, p := range ps {
		ts := p.Timestamp
		if a.loc != nil {
			ts = ts.In(a.loc)
		}
		a.total++
		a.hours[ts.Hour()]++
		a.days[weekdayIndex(ts.Weekday())]++
		a.months[ts.Format("2006-01")]++
		a.dates[ts.Format("2006-01-02")]++
		if _, seen := a.badges[p.BadgeID]; !seen {
			a.order = append(a.order, p.BadgeID)
		}
		a.badges[p.BadgeID]++
	}
}

func (a *Aggregator) Total() int { return a.total }

// UniqueBadges is the number of distinct badges seen.
func (a *Aggregator) UniqueBadges() int { return len(a.order) }

// ByHour returns 24 counts, index 0 being 00:00-00:59.
func (a *Aggregator) ByHour() [24]int { return a.hours }

// ByWeekday returns 7 counts, Monday first.
func (a *Aggregator) ByWeekday() [7]int { return a.days }

func (a *Aggregator) ByMonth() []Bucket { return sortedBuckets(a.months) }

func (a *Aggregator) ByDay() []Bucket { return sortedBuckets(a.dates) }

// TopMembers returns up to n badges by descending count. Ties keep the order in
// which badges were first seen. members resolves badges to their owners.
func (a *Aggregator) TopMembers(n int, members map[domain.BadgeID]domain.MemberSummary) []TopEntry {
	out := make([]TopEntry, 0, len(a.order))
	for _, b := range a.order {
		e := TopEntry{BadgeID: b, Count: a.badges[b]}
		if m, ok := members[b]; ok {
			e.Member = &m
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ByHour counts ps per hour of day.
func ByHour(ps []domain.Presence) [24]int {
	a := NewAggregator()
	a.Add(ps...)
	return a.ByHour()
}

func ByWeekday(ps []domain.Presence) [7]int {
	a := NewAggregator()
	a.Add(ps...)
	return a.ByWeekday()
}

func ByMonth(ps []domain.Presence) []Bucket {
	a := NewAggregator()
	a.Add(ps...)
	return a.ByMonth()
}

func ByDay(ps []domain.Presence) []Bucket {
	a := NewAggregator()
	a.Add(ps...)
	return a.ByDay()
}

func TopMembers(ps []domain.Presence, n int, members map[domain.BadgeID]domain.MemberSummary) []TopEntry {
	a := NewAggregator()
	a.Add(ps...)
	return a.TopMembers(n, members)
}

// WeekdayLabels are the French day names in ByWeekday order.
var WeekdayLabels = [7]string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"}

func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func sortedBuckets(m map[string]int) []Bucket {
	out := make([]Bucket, 0, len(m))
	for k, v := range m {
		out = append(out, Bucket{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
