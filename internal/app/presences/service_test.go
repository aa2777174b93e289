package presences

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/bodyforce/admin-api/internal/adapters/memory/clock"
	memmemberrepo "github.com/bodyforce/admin-api/internal/adapters/memory/memberrepo"
	mempresencerepo "github.com/bodyforce/admin-api/internal/adapters/memory/presencerepo"
	"github.com/bodyforce/admin-api/internal/app/apperr"
	"github.com/bodyforce/admin-api/internal/domain"
)

type countingObserver struct{ n int }

func (o *countingObserver) PresenceRecorded() { o.n++ }

type fixture struct {
	svc     *Service
	members *memmemberrepo.Repo
	clk     *memclock.ManualClock
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()
	members := memmemberrepo.NewRepo()
	clk := memclock.NewManualClock(now)
	svc := NewService(mempresencerepo.NewRepo(), members, clk)
	svc.PageSize = 2
	return fixture{svc: svc, members: members, clk: clk}
}

func (f fixture) addMember(t *testing.T, id, name, badge string) {
	t.Helper()
	require.NoError(t, f.members.Create(context.Background(), domain.Member{
		ID: domain.MemberID(id), Name: name, FirstName: "X", BadgeID: domain.BadgeID(badge),
	}))
}

func (f fixture) scan(t *testing.T, badge string, at time.Time) domain.Presence {
	t.Helper()
	p, err := f.svc.Record(context.Background(), badge, &at)
	require.NoError(t, err)
	return p
}

func TestRecord_DefaultsToNowAndCounts(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 4, 18, 30, 0, 0, time.UTC)
	f := newFixture(t, now)
	obs := &countingObserver{}
	f.svc.Metrics = obs

	p, err := f.svc.Record(context.Background(), "  B1 ", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.BadgeID("B1"), p.BadgeID)
	assert.True(t, p.Timestamp.Equal(now))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 1, obs.n)
}

func TestRecord_RejectsEmptyBadge(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Now())
	_, err := f.svc.Record(context.Background(), " ", nil)
	ae, ok := apperr.As(err)
	require.True(t, ok, "err=%v", err)
	assert.Equal(t, 422, ae.Status)
}

func TestList_ReadsEveryPage(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, base)
	for i := 0; i < 5; i++ {
		f.scan(t, "B1", base.Add(time.Duration(i)*time.Hour))
	}
	f.scan(t, "B2", base)

	got, err := f.svc.List(context.Background(), domain.TimeRange{}, "B1")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp), "not ordered at %d", i)
	}

	_, err = f.svc.List(context.Background(), domain.TimeRange{From: base, To: base.Add(-time.Hour)}, "")
	require.Error(t, err)
}

func TestDelete_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, time.Now())
	err := f.svc.Delete(context.Background(), "nope")
	ae, ok := apperr.As(err)
	require.True(t, ok, "err=%v", err)
	assert.Equal(t, "PRESENCE_NOT_FOUND", ae.Code)
}

func TestCleanDuplicates(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, base)
	first := f.scan(t, "B1", base.Add(5*time.Second))
	f.scan(t, "B1", base.Add(40*time.Second))
	f.scan(t, "B1", base.Add(65*time.Second))
	f.scan(t, "B2", base.Add(6*time.Second))

	n, err := f.svc.CleanDuplicates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := f.svc.List(context.Background(), domain.TimeRange{}, "B1")
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, first.ID, left[0].ID)
}

func TestMemberPresences_GroupsUnknownBadges(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, base)
	f.addMember(t, "m1", "Bernard", "B1")
	f.addMember(t, "m2", "Albert", "B2")
	f.scan(t, "B1", base)
	f.scan(t, "B1", base.Add(24*time.Hour))
	f.scan(t, "ZZ", base)
	f.scan(t, "B2", base.Add(-24*time.Hour))

	got, err := f.svc.MemberPresences(context.Background(), domain.TimeRange{From: base})
	require.NoError(t, err)
	require.Len(t, got.Members, 2)
	assert.Equal(t, "Albert", got.Members[0].Member.Name)
	assert.Empty(t, got.Members[0].Presences)
	assert.Len(t, got.Members[1].Presences, 2)
	require.Len(t, got.Unknown, 1)
	assert.Equal(t, domain.BadgeID("ZZ"), got.Unknown[0].BadgeID)
}

func TestPlanning(t *testing.T) {
	t.Parallel()

	// Wednesday.
	wed := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, wed)
	f.addMember(t, "m1", "Albert", "B1")
	f.scan(t, "B1", time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC))
	f.scan(t, "B1", time.Date(2025, 3, 3, 19, 0, 0, 0, time.UTC))
	f.scan(t, "B1", time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC))
	f.scan(t, "B1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	f.scan(t, "XX", time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC))

	p, err := f.svc.Planning(context.Background(), wed)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), p.WeekStart)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), p.Days[6])
	require.Len(t, p.Rows, 1)
	assert.Equal(t, [7]int{2, 0, 0, 0, 0, 0, 1}, p.Rows[0].Counts)
	assert.Equal(t, 3, p.Rows[0].Total)
	assert.Equal(t, 1, p.Unknown)
}

func TestStartOfWeek(t *testing.T) {
	t.Parallel()

	sunday := time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, StartOfWeek(monday))
}

func TestPlanning_DaysFollowGymTimeZone(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, monday)
	f.svc.Location = paris
	f.addMember(t, "m1", "Albert", "B1")
	// 00:30 on Monday in Paris, still Sunday in UTC.
	f.scan(t, "B1", time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC))
	// 23:30 on Sunday in Paris.
	f.scan(t, "B1", time.Date(2025, 3, 16, 22, 30, 0, 0, time.UTC))
	// 00:30 on the next Monday in Paris.
	f.scan(t, "B1", time.Date(2025, 3, 16, 23, 30, 0, 0, time.UTC))

	p, err := f.svc.Planning(context.Background(), monday)
	require.NoError(t, err)
	assert.Equal(t, monday, p.WeekStart)
	require.Len(t, p.Rows, 1)
	assert.Equal(t, [7]int{1, 0, 0, 0, 0, 0, 1}, p.Rows[0].Counts)
	assert.Equal(t, 2, p.Rows[0].Total)
}
