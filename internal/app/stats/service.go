package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/bodyforce/admin-api/internal/app/apperr"
	"github.com/bodyforce/admin-api/internal/app/payments"
	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/clock"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
	"github.com/bodyforce/admin-api/internal/ports/out/presencerepo"
)

// TopN is the length of Report.TopMembers.
const TopN = 10

// PaymentSummarizer is satisfied by *payments.Service.
type PaymentSummarizer interface {
	Summary(ctx context.Context, rng domain.TimeRange) (payments.Summary, error)
}

type Period struct {
	Start time.Time
	End   time.Time // inclusive
	Days  int
}

type MemberStats struct {
	Total          int
	Active         int
	Expired        int
	Students       int
	ByGender       map[string]int
	BySubscription map[string]int
}

type PaymentStats struct {
	Paid        float64
	Unpaid      float64
	CountPaid   int
	CountUnpaid int
}

type Report struct {
	Period         Period
	GeneratedAt    time.Time
	TotalPresences int
	UniqueMembers  int
	AvgPerDay      float64
	ByHour         [24]int
	ByWeekday      [7]int
	ByMonth        []Bucket
	ByDay          []Bucket
	TopMembers     []TopEntry
	Members        MemberStats
	Payments       PaymentStats
	// PaymentsUnavailable is set when payment totals could not be read; the rest
	// of the report is still valid.
	PaymentsUnavailable bool
}

type Service struct {
	presences presencerepo.Repository
	members   memberrepo.Repository
	payments  PaymentSummarizer
	clk       clock.Clock

	PageSize int
	// Location is the gym's time zone; days and hours are counted in it.
	// Nil means UTC.
	Location *time.Location
	Log      *slog.Logger
}

func NewService(presences presencerepo.Repository, members memberrepo.Repository, pay PaymentSummarizer, clk clock.Clock) *Service {
	return &Service{
		presences: presences,
		members:   members,
		payments:  pay,
		clk:       clk,
		PageSize:  presencerepo.PageSize,
		Log:       slog.Default(),
	}
}

// Report aggregates attendance between start and end, both days inclusive.
func (s *Service) Report(ctx context.Context, start, end time.Time) (Report, error) {
	if start.IsZero() || end.IsZero() {
		return Report{}, apperr.Validation("invalid period", map[string]any{"start": "required", "end": "required"})
	}
	start, end = domain.CalendarDate(start), domain.CalendarDate(end)
	if end.Before(start) {
		return Report{}, apperr.Field("end", "must not be before start")
	}
	now := s.clk.Now().UTC()
	rng := domain.DayRangeIn(start, end, s.location())

	all, err := s.members.List(ctx, memberrepo.Filter{Status: memberrepo.StatusAll, Now: now})
	if err != nil {
		return Report{}, err
	}
	byBadge := make(map[domain.BadgeID]domain.MemberSummary, len(all.Members))
	for _, m := range all.Members {
		if m.BadgeID != "" {
			byBadge[m.BadgeID] = m.Summary()
		}
	}

	agg := NewAggregatorIn(s.location())
	err = presencerepo.Each(ctx, s.presences, presencerepo.Filter{Range: rng}, s.PageSize, func(page []domain.Presence) error {
		agg.Add(page...)
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	days := domain.DaysBetween(start, end) + 1
	r := Report{
		Period:         Period{Start: start, End: end, Days: days},
		GeneratedAt:    now,
		TotalPresences: agg.Total(),
		UniqueMembers:  agg.UniqueBadges(),
		ByHour:         agg.ByHour(),
		ByWeekday:      agg.ByWeekday(),
		ByMonth:        agg.ByMonth(),
		ByDay:          agg.ByDay(),
		TopMembers:     agg.TopMembers(TopN, byBadge),
		Members:        memberStats(all.Members, now),
	}
	if days > 0 {
		r.AvgPerDay = float64(r.TotalPresences) / float64(days)
	}

	if s.payments == nil {
		r.PaymentsUnavailable = true
		return r, nil
	}
	// Payment dates are calendar dates.
	sum, err := s.payments.Summary(ctx, domain.DayRangeIn(start, end, time.UTC))
	if err != nil {
		s.logger().WarnContext(ctx, "payments unavailable for stats report", "err", err,
			"start", domain.FormatDate(start), "end", domain.FormatDate(end))
		r.PaymentsUnavailable = true
		return r, nil
	}
	r.Payments = PaymentStats{Paid: sum.Paid, Unpaid: sum.Unpaid, CountPaid: sum.CountPaid, CountUnpaid: sum.CountUnpaid}
	return r, nil
}

func memberStats(ms []domain.Member, now time.Time) MemberStats {
	out := MemberStats{
		Total:          len(ms),
		ByGender:       map[string]int{},
		BySubscription: map[string]int{},
	}
	for _, m := range ms {
		if m.Expired(now) {
			out.Expired++
		} else {
			out.Active++
		}
		if m.Etudiant {
			out.Students++
		}
		g := string(m.Gender)
		if g == "" {
			g = "Non renseigné"
		}
		out.ByGender[g]++
		t := string(m.SubscriptionType)
		if t == "" {
			t = "Aucun"
		}
		out.BySubscription[t]++
	}
	return out
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
