package httpapi

import (
	"net/http"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestPresences_ScanUsesServerTime(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/presences/scan", api.admin(t), map[string]any{
		"badgeId":   " B-1 ",
		"timestamp": "2020-01-01T00:00:00Z",
	})
	requireStatus(t, rec, http.StatusCreated)
	p := decode[PresenceJSON](t, rec)
	if p.BadgeID != "B-1" {
		t.Fatalf("badgeId: got %q", p.BadgeID)
	}
	if !p.Timestamp.Equal(testNow) {
		t.Fatalf("timestamp: got %v want %v", p.Timestamp, testNow)
	}
}

func TestPresences_RecordListDelete(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)

	for _, ts := range []string{"2025-03-08T09:00:00Z", "2025-03-09T18:30:00Z"} {
		rec := api.do(t, http.MethodPost, "/presences", tok, map[string]any{"badgeId": "B-1", "timestamp": ts})
		requireStatus(t, rec, http.StatusCreated)
	}
	rec := api.do(t, http.MethodPost, "/presences", tok, map[string]any{"badgeId": "B-2", "timestamp": "2025-03-09T07:00:00Z"})
	requireStatus(t, rec, http.StatusCreated)

	rec = api.do(t, http.MethodGet, "/presences?start=2025-03-09&end=2025-03-09", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	list := decode[PresenceListResponse](t, rec)
	if list.Total != 2 {
		t.Fatalf("total: got %d want 2 (%+v)", list.Total, list.Presences)
	}

	rec = api.do(t, http.MethodGet, "/presences?badgeId=B-1", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	list = decode[PresenceListResponse](t, rec)
	if list.Total != 2 {
		t.Fatalf("badge filter total: got %d", list.Total)
	}

	rec = api.do(t, http.MethodDelete, "/presences/"+list.Presences[0].ID, tok, nil)
	requireStatus(t, rec, http.StatusNoContent)
	rec = api.do(t, http.MethodDelete, "/presences/"+list.Presences[0].ID, tok, nil)
	requireError(t, rec, http.StatusNotFound, "PRESENCE_NOT_FOUND")
}

func TestPresences_Record_Validation(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)

	rec := api.do(t, http.MethodPost, "/presences", tok, map[string]any{"badgeId": ""})
	requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodPost, "/presences", tok, `{"badgeId":"B-1","timestamp":"yesterday"}`)
	requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = api.do(t, http.MethodGet, "/presences?start=2025-13-01", tok, nil)
	requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestPresences_CleanDuplicates(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)
	for _, ts := range []string{"2025-03-09T10:00:05Z", "2025-03-09T10:00:40Z", "2025-03-09T10:05:00Z"} {
		rec := api.do(t, http.MethodPost, "/presences", tok, map[string]any{"badgeId": "B-1", "timestamp": ts})
		requireStatus(t, rec, http.StatusCreated)
	}

	rec := api.do(t, http.MethodPost, "/presences/clean-duplicates", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[CleanDuplicatesResponse](t, rec).Removed; got != 1 {
		t.Fatalf("removed: got %d want 1", got)
	}

	rec = api.do(t, http.MethodGet, "/presences", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[PresenceListResponse](t, rec).Total; got != 2 {
		t.Fatalf("remaining: got %d want 2", got)
	}
}

func TestPresences_ByMemberAndPlanning(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)
	m := api.createMember(t, map[string]any{"name": "Durand", "firstName": "Ana", "badgeId": "B-1"})
	api.createMember(t, map[string]any{"name": "Martin", "firstName": "Paul"})

	// Monday and Wednesday of the current week, plus an unknown badge.
	scans := []map[string]any{
		{"badgeId": "B-1", "timestamp": "2025-03-10T08:00:00Z"},
		{"badgeId": "B-1", "timestamp": "2025-03-12T19:00:00Z"},
		{"badgeId": "ZZZ", "timestamp": "2025-03-11T12:00:00Z"},
		{"badgeId": "B-1", "timestamp": "2025-03-03T08:00:00Z"},
	}
	for _, s := range scans {
		requireStatus(t, api.do(t, http.MethodPost, "/presences", tok, s), http.StatusCreated)
	}

	rec := api.do(t, http.MethodGet, "/presences/by-member?start=2025-03-10&end=2025-03-16", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	bm := decode[MemberPresencesResponse](t, rec)
	if len(bm.Members) != 2 || len(bm.Unknown) != 1 {
		t.Fatalf("by-member: %+v", bm)
	}
	for _, ms := range bm.Members {
		want := 0
		if ms.Member.ID == m.ID {
			want = 2
		}
		if len(ms.Presences) != want {
			t.Fatalf("%s: got %d scans want %d", ms.Member.Name, len(ms.Presences), want)
		}
	}

	// Thursday resolves to the week starting Monday 2025-03-10.
	rec = api.do(t, http.MethodGet, "/planning?week=2025-03-13", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	p := decode[PlanningResponse](t, rec)
	if p.WeekStart.String() != "2025-03-10" || len(p.Days) != 7 {
		t.Fatalf("week: %s days=%d", p.WeekStart, len(p.Days))
	}
	if p.Unknown != 1 || len(p.Rows) != 2 {
		t.Fatalf("planning: unknown=%d rows=%d", p.Unknown, len(p.Rows))
	}
	for _, row := range p.Rows {
		if row.Member.ID != m.ID {
			continue
		}
		if row.Total != 2 || row.Counts[0] != 1 || row.Counts[2] != 1 {
			t.Fatalf("row: %+v", row)
		}
	}

	// Defaults to the current week.
	rec = api.do(t, http.MethodGet, "/planning", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[PlanningResponse](t, rec).WeekStart.Time; !got.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("default week: %v", got)
	}
}

func TestPresences_DaysFollowGymTimeZone(t *testing.T) {
	t.Parallel()

	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	api := newTestAPIIn(t, paris)
	tok := api.admin(t)
	// 00:30 and 09:30 on Monday 2025-03-10 in Paris.
	for _, ts := range []string{"2025-03-09T23:30:00Z", "2025-03-10T08:30:00Z"} {
		requireStatus(t, api.do(t, http.MethodPost, "/presences", tok, map[string]any{"badgeId": "B-1", "timestamp": ts}), http.StatusCreated)
	}

	rec := api.do(t, http.MethodGet, "/presences?start=2025-03-10&end=2025-03-10", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[PresenceListResponse](t, rec).Total; got != 2 {
		t.Fatalf("monday presences: got %d want 2", got)
	}

	rec = api.do(t, http.MethodGet, "/stats?start=2025-03-10&end=2025-03-10", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	st := decode[StatsResponse](t, rec)
	if st.TotalPresences != 2 || st.ByHour[0] != 1 || st.ByHour[9] != 1 || st.ByHour[8] != 0 {
		t.Fatalf("stats: total=%d hours=%v", st.TotalPresences, st.ByHour)
	}
	if len(st.ByDay) != 1 || st.ByDay[0].Key != "2025-03-10" {
		t.Fatalf("byDay: %+v", st.ByDay)
	}

	// Sunday 23:30 UTC is already the next Monday in Paris.
	api.clk.Set(time.Date(2025, 3, 16, 23, 30, 0, 0, time.UTC))
	rec = api.do(t, http.MethodGet, "/planning", api.admin(t), nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[PlanningResponse](t, rec).WeekStart.String(); got != "2025-03-17" {
		t.Fatalf("default week: %s", got)
	}
}
