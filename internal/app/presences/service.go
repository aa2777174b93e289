package presences

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bodyforce/admin-api/internal/app/apperr"
	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/clock"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
	"github.com/bodyforce/admin-api/internal/ports/out/presencerepo"
)

// Observer is notified of recorded scans.
type Observer interface {
	PresenceRecorded()
}

type Service struct {
	repo    presencerepo.Repository
	members memberrepo.Repository
	clk     clock.Clock

	// PageSize overrides presencerepo.PageSize; tests use small pages.
	PageSize int
	Metrics  Observer
	// Location is the gym's time zone. Planning days start at local midnight.
	Location *time.Location
}

func NewService(repo presencerepo.Repository, members memberrepo.Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, members: members, clk: clk, PageSize: presencerepo.PageSize}
}

// Record stores a badge scan. A nil at means now. Unknown badges are accepted.
func (s *Service) Record(ctx context.Context, badge string, at *time.Time) (domain.Presence, error) {
	badgeID := domain.NormalizeBadgeID(badge)
	if badgeID == "" {
		return domain.Presence{}, apperr.Field("badgeId", "required")
	}
	ts := s.clk.Now().UTC()
	if at != nil && !at.IsZero() {
		ts = at.UTC()
	}
	p := domain.Presence{
		ID:        domain.PresenceID(uuid.NewString()),
		BadgeID:   badgeID,
		Timestamp: ts,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return domain.Presence{}, err
	}
	if s.Metrics != nil {
		s.Metrics.PresenceRecorded()
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, rng domain.TimeRange, badge string) ([]domain.Presence, error) {
	if err := checkRange(rng); err != nil {
		return nil, err
	}
	out := []domain.Presence{}
	err := s.each(ctx, presencerepo.Filter{Range: rng, BadgeID: domain.NormalizeBadgeID(badge)}, func(page []domain.Presence) error {
		out = append(out, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id domain.PresenceID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, presencerepo.ErrNotFound) {
			return apperr.NotFound("PRESENCE_NOT_FOUND", "presence not found")
		}
		return err
	}
	return nil
}

// CleanDuplicates removes repeated scans of one badge within the same minute.
func (s *Service) CleanDuplicates(ctx context.Context) (int, error) {
	return s.repo.DeleteDuplicates(ctx)
}

// MemberPresences is every member with their scans in a range. Scans whose badge
// matches no member are grouped under Unknown.
type MemberPresences struct {
	Range   domain.TimeRange
	Members []MemberScans
	Unknown []domain.Presence
}

type MemberScans struct {
	Member    domain.MemberSummary
	Presences []time.Time
}

func (s *Service) MemberPresences(ctx context.Context, rng domain.TimeRange) (MemberPresences, error) {
	if err := checkRange(rng); err != nil {
		return MemberPresences{}, err
	}
	members, err := s.allMembers(ctx)
	if err != nil {
		return MemberPresences{}, err
	}

	out := MemberPresences{Range: rng, Members: make([]MemberScans, len(members)), Unknown: []domain.Presence{}}
	byBadge := make(map[domain.BadgeID]int, len(members))
	for i, m := range members {
		out.Members[i] = MemberScans{Member: m.Summary(), Presences: []time.Time{}}
		if m.BadgeID != "" {
			byBadge[m.BadgeID] = i
		}
	}
	err = s.each(ctx, presencerepo.Filter{Range: rng}, func(page []domain.Presence) error {
		for _, p := range page {
			i, ok := byBadge[p.BadgeID]
			if !ok {
				out.Unknown = append(out.Unknown, p)
				continue
			}
			out.Members[i].Presences = append(out.Members[i].Presences, p.Timestamp)
		}
		return nil
	})
	if err != nil {
		return MemberPresences{}, err
	}
	return out, nil
}

// Planning is a weekly attendance grid, Monday through Sunday.
type Planning struct {
	WeekStart time.Time
	Days      [7]time.Time
	Rows      []PlanningRow
	Unknown   int
}

type PlanningRow struct {
	Member domain.MemberSummary
	Counts [7]int
	Total  int
}

// Planning builds the grid for the week containing weekStart's date. Scans
// are assigned to days in the service's location.
func (s *Service) Planning(ctx context.Context, weekStart time.Time) (Planning, error) {
	monday := StartOfWeek(weekStart)
	loc := s.location()
	rng := domain.TimeRange{From: domain.StartOfDay(monday, loc), To: domain.StartOfDay(monday.AddDate(0, 0, 7), loc)}
	mp, err := s.MemberPresences(ctx, rng)
	if err != nil {
		return Planning{}, err
	}

	out := Planning{WeekStart: monday, Rows: make([]PlanningRow, 0, len(mp.Members)), Unknown: len(mp.Unknown)}
	for i := range out.Days {
		out.Days[i] = monday.AddDate(0, 0, i)
	}
	for _, ms := range mp.Members {
		row := PlanningRow{Member: ms.Member}
		for _, ts := range ms.Presences {
			d := domain.DaysBetween(monday, ts.In(loc))
			if d < 0 || d > 6 {
				continue
			}
			row.Counts[d]++
			row.Total++
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// StartOfWeek returns the Monday on or before t's calendar date, as midnight UTC.
func StartOfWeek(t time.Time) time.Time {
	d := domain.CalendarDate(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func (s *Service) each(ctx context.Context, f presencerepo.Filter, fn func([]domain.Presence) error) error {
	return presencerepo.Each(ctx, s.repo, f, s.PageSize, fn)
}

func (s *Service) allMembers(ctx context.Context) ([]domain.Member, error) {
	page, err := s.members.List(ctx, memberrepo.Filter{Status: memberrepo.StatusAll, Now: s.clk.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return page.Members, nil
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func checkRange(r domain.TimeRange) error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return apperr.Validation("invalid range", map[string]any{"to": "must not be before from"})
	}
	return nil
}
