package stats

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/bodyforce/admin-api/internal/adapters/memory/clock"
	memmemberrepo "github.com/bodyforce/admin-api/internal/adapters/memory/memberrepo"
	mempresencerepo "github.com/bodyforce/admin-api/internal/adapters/memory/presencerepo"
	"github.com/bodyforce/admin-api/internal/app/payments"
	"github.com/bodyforce/admin-api/internal/domain"
)

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

func presence(id, badge string, ts time.Time) domain.Presence {
	return domain.Presence{ID: domain.PresenceID(id), BadgeID: domain.BadgeID(badge), Timestamp: ts}
}

func TestByHour_SumsToTotal(t *testing.T) {
	t.Parallel()

	ps := []domain.Presence{
		presence("1", "a", at(3, 7)),
		presence("2", "a", at(3, 7).Add(30*time.Minute)),
		presence("3", "b", at(4, 18)),
		presence("4", "c", at(5, 23)),
	}
	hours := ByHour(ps)
	sum := 0
	for _, n := range hours {
		sum += n
	}
	assert.Equal(t, len(ps), sum)
	assert.Equal(t, 2, hours[7])
	assert.Equal(t, 1, hours[23])
}

func TestByWeekday_MondayFirst(t *testing.T) {
	t.Parallel()

	// 2025-03-03 is a Monday, 2025-03-09 a Sunday.
	days := ByWeekday([]domain.Presence{presence("1", "a", at(3, 9)), presence("2", "a", at(9, 9))})
	assert.Equal(t, [7]int{1, 0, 0, 0, 0, 0, 1}, days)
}

func TestByMonthAndDay_Sorted(t *testing.T) {
	t.Parallel()

	ps := []domain.Presence{
		presence("1", "a", time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)),
		presence("2", "a", at(3, 9)),
		presence("3", "b", at(3, 10)),
	}
	assert.Equal(t, []Bucket{{"2025-03", 2}, {"2025-04", 1}}, ByMonth(ps))
	assert.Equal(t, []Bucket{{"2025-03-03", 2}, {"2025-04-02", 1}}, ByDay(ps))
}

func TestTopMembers_StableDescending(t *testing.T) {
	t.Parallel()

	ps := []domain.Presence{
		presence("1", "c", at(3, 1)),
		presence("2", "a", at(3, 2)),
		presence("3", "b", at(3, 3)),
		presence("4", "a", at(3, 4)),
		presence("5", "b", at(3, 5)),
		presence("6", "d", at(3, 6)),
	}
	members := map[domain.BadgeID]domain.MemberSummary{"a": {ID: "m-a", Name: "Alpha"}}
	top := TopMembers(ps, 3, members)
	require.Len(t, top, 3)
	// a and b tie on 2; a was seen first. c and d tie on 1; c was seen first.
	assert.Equal(t, []domain.BadgeID{"a", "b", "c"}, []domain.BadgeID{top[0].BadgeID, top[1].BadgeID, top[2].BadgeID})
	require.NotNil(t, top[0].Member)
	assert.Equal(t, "Alpha", top[0].Member.Name)
	assert.Nil(t, top[1].Member)
}

type failingPayments struct{}

func (failingPayments) Summary(ctx context.Context, rng domain.TimeRange) (payments.Summary, error) {
	return payments.Summary{}, errors.New("payments table locked")
}

type fixedPayments struct{ sum payments.Summary }

func (f fixedPayments) Summary(ctx context.Context, rng domain.TimeRange) (payments.Summary, error) {
	return f.sum, nil
}

func seed(t *testing.T) (*memmemberrepo.Repo, *mempresencerepo.Repo) {
	t.Helper()
	ctx := context.Background()
	members := memmemberrepo.NewRepo()
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, members.Create(ctx, domain.Member{
		ID: "m1", Name: "Durand", FirstName: "Ana", BadgeID: "B1", Gender: domain.GenderFemale,
		SubscriptionType: domain.SubscriptionAnnual, EndDate: &end, Etudiant: true,
	}))
	require.NoError(t, members.Create(ctx, domain.Member{ID: "m2", Name: "Petit", FirstName: "Luc", BadgeID: "B2"}))

	presences := mempresencerepo.NewRepo()
	for i, p := range []domain.Presence{
		presence("p1", "B1", at(3, 8)),
		presence("p2", "B1", at(4, 8)),
		presence("p3", "B2", at(4, 18)),
		presence("p4", "ZZ", at(5, 12)),
		presence("p5", "B1", at(10, 8)),
	} {
		require.NoError(t, presences.Create(ctx, p), "presence %d", i)
	}
	return members, presences
}

func TestReport(t *testing.T) {
	t.Parallel()

	members, presences := seed(t)
	clk := memclock.NewManualClock(at(8, 12))
	svc := NewService(presences, members, fixedPayments{payments.Summary{Paid: 100, Unpaid: 40, CountPaid: 2, CountUnpaid: 1}}, clk)
	svc.PageSize = 2

	r, err := svc.Report(context.Background(), at(3, 0), at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, 7, r.Period.Days)
	assert.Equal(t, 4, r.TotalPresences)
	assert.Equal(t, 3, r.UniqueMembers)
	assert.InDelta(t, 4.0/7.0, r.AvgPerDay, 1e-9)
	require.NotEmpty(t, r.TopMembers)
	assert.Equal(t, domain.BadgeID("B1"), r.TopMembers[0].BadgeID)
	assert.Equal(t, 2, r.TopMembers[0].Count)

	assert.Equal(t, MemberStats{
		Total: 2, Active: 1, Expired: 1, Students: 1,
		ByGender:       map[string]int{"Femme": 1, "Non renseigné": 1},
		BySubscription: map[string]int{"Annuel": 1, "Aucun": 1},
	}, r.Members)
	assert.False(t, r.PaymentsUnavailable)
	assert.Equal(t, PaymentStats{Paid: 100, Unpaid: 40, CountPaid: 2, CountUnpaid: 1}, r.Payments)
}

func TestReport_PaymentsFailureIsLoggedNotFatal(t *testing.T) {
	t.Parallel()

	members, presences := seed(t)
	var buf bytes.Buffer
	svc := NewService(presences, members, failingPayments{}, memclock.NewManualClock(at(8, 12)))
	svc.Log = slog.New(slog.NewTextHandler(&buf, nil))

	r, err := svc.Report(context.Background(), at(3, 0), at(9, 0))
	require.NoError(t, err)
	assert.True(t, r.PaymentsUnavailable)
	assert.Equal(t, 4, r.TotalPresences)
	assert.Contains(t, buf.String(), "payments table locked")
}

func TestReport_RejectsInvertedPeriod(t *testing.T) {
	t.Parallel()

	members, presences := seed(t)
	svc := NewService(presences, members, nil, memclock.NewManualClock(at(8, 12)))
	_, err := svc.Report(context.Background(), at(9, 0), at(3, 0))
	require.Error(t, err)
}

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func TestAggregator_BucketsInLocalTime(t *testing.T) {
	t.Parallel()

	loc := paris(t)
	// Stored scans are UTC instants: Wednesday 09:30 and Monday 00:30 in Paris.
	ps := []domain.Presence{
		presence("1", "a", time.Date(2025, 1, 15, 9, 30, 0, 0, loc).UTC()),
		presence("2", "b", time.Date(2025, 1, 13, 0, 30, 0, 0, loc).UTC()),
	}

	a := NewAggregatorIn(loc)
	a.Add(ps...)
	hours := a.ByHour()
	assert.Equal(t, 1, hours[9])
	assert.Equal(t, 1, hours[0])
	assert.Equal(t, 0, hours[8])
	assert.Equal(t, [7]int{1, 0, 1, 0, 0, 0, 0}, a.ByWeekday())
	assert.Equal(t, []Bucket{{Key: "2025-01-13", Count: 1}, {Key: "2025-01-15", Count: 1}}, a.ByDay())
	assert.Equal(t, []Bucket{{Key: "2025-01", Count: 2}}, a.ByMonth())

	// Without a location each timestamp is read where it was recorded.
	local := []domain.Presence{
		presence("1", "a", time.Date(2025, 1, 15, 9, 30, 0, 0, loc)),
		presence("2", "b", time.Date(2025, 1, 13, 0, 30, 0, 0, loc)),
	}
	assert.Equal(t, 1, ByHour(local)[9])
	assert.Equal(t, 1, ByWeekday(local)[0])
	assert.Equal(t, []Bucket{{Key: "2025-01-13", Count: 1}, {Key: "2025-01-15", Count: 1}}, ByDay(local))
}

func TestReport_CountsDaysInGymTimeZone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	loc := paris(t)
	presences := mempresencerepo.NewRepo()
	// Monday 2025-03-10 00:30 in Paris is still Sunday in UTC.
	require.NoError(t, presences.Create(ctx, presence("p1", "B1", time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC))))
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	svc := NewService(presences, memmemberrepo.NewRepo(), nil, memclock.NewManualClock(at(12, 12)))
	svc.Location = loc
	r, err := svc.Report(ctx, monday, monday)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Period.Days)
	assert.Equal(t, 1, r.TotalPresences)
	assert.Equal(t, 1, r.ByHour[0])
	assert.Equal(t, 1, r.ByWeekday[0])
	assert.Equal(t, []Bucket{{Key: "2025-03-10", Count: 1}}, r.ByDay)

	utc := NewService(presences, memmemberrepo.NewRepo(), nil, memclock.NewManualClock(at(12, 12)))
	r, err = utc.Report(ctx, monday, monday)
	require.NoError(t, err)
	assert.Equal(t, 0, r.TotalPresences)
}
