package httpapi

import (
	"net/http"
	"testing"
	"time"
)

func TestMembers_CreateGetListDelete(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)

	m := api.createMember(t, map[string]any{
		"name":             "  Durand ",
		"firstName":        "Ana   Maria",
		"gender":           "Femme",
		"subscriptionType": "Mensuel",
		"startDate":        "2025-01-15",
		"badgeId":          "B-100",
		"etudiant":         true,
	})
	if m.ID == "" {
		t.Fatalf("expected id")
	}
	if m.Name != "Durand" || m.FirstName != "Ana Maria" {
		t.Fatalf("names not normalized: %q %q", m.Name, m.FirstName)
	}
	end, err := m.EndDate.Get()
	if err != nil || end.String() != "2025-02-14" {
		t.Fatalf("endDate: got %v err=%v", end, err)
	}
	// testNow is 2025-03-10.
	if !m.IsExpired {
		t.Fatalf("expected member to be expired")
	}
	if !m.Birthdate.IsNull() {
		t.Fatalf("expected birthdate null")
	}

	rec := api.do(t, http.MethodGet, "/members/"+m.ID, tok, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[MemberResponse](t, rec).Member; got.BadgeID != "B-100" || !got.Etudiant {
		t.Fatalf("unexpected member: %+v", got)
	}

	api.createMember(t, map[string]any{"name": "Martin", "firstName": "Paul"})

	rec = api.do(t, http.MethodGet, "/members?q=dur", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	list := decode[MemberListResponse](t, rec)
	if list.Total != 1 || len(list.Members) != 1 || list.Members[0].ID != m.ID {
		t.Fatalf("search: %+v", list)
	}
	if list.Limit != defaultMemberPageSize {
		t.Fatalf("limit: got %d", list.Limit)
	}

	rec = api.do(t, http.MethodGet, "/members?etudiant=true", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[MemberListResponse](t, rec).Total; got != 1 {
		t.Fatalf("etudiant filter total: got %d", got)
	}

	rec = api.do(t, http.MethodGet, "/members/counts", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	counts := decode[MemberCountsJSON](t, rec)
	if counts.Total != 2 || counts.Students != 1 {
		t.Fatalf("counts: %+v", counts)
	}

	rec = api.do(t, http.MethodDelete, "/members/"+m.ID, tok, nil)
	requireStatus(t, rec, http.StatusNoContent)

	rec = api.do(t, http.MethodGet, "/members/"+m.ID, tok, nil)
	requireError(t, rec, http.StatusNotFound, "MEMBER_NOT_FOUND")
}

func TestMembers_Create_ValidationDetails(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/members", api.admin(t), map[string]any{
		"firstName": "Ana",
		"gender":    "Autre",
		"email":     "not-an-email",
	})
	er := requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	details, err := er.Error.Details.Get()
	if err != nil {
		t.Fatalf("expected details: %v", err)
	}
	for _, field := range []string{"name", "gender", "email"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("details missing %q: %v", field, details)
		}
	}
}

func TestMembers_Create_UnknownSubscriptionType(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/members", api.admin(t), map[string]any{
		"name": "Durand", "firstName": "Ana", "subscriptionType": "Hebdo",
	})
	er := requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	details, _ := er.Error.Details.Get()
	if _, ok := details["subscriptionType"]; !ok {
		t.Fatalf("details: %v", details)
	}
}

func TestMembers_DuplicateBadge_409(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.createMember(t, map[string]any{"name": "Durand", "firstName": "Ana", "badgeId": "B-1"})

	rec := api.do(t, http.MethodPost, "/members", api.admin(t), map[string]any{
		"name": "Martin", "firstName": "Paul", "badgeId": "B-1",
	})
	requireError(t, rec, http.StatusConflict, "BADGE_TAKEN")
}

func TestMembers_Update_NullClearsField(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	m := api.createMember(t, map[string]any{
		"name": "Durand", "firstName": "Ana", "phone": "0102030405", "birthdate": "1990-05-04",
	})

	rec := api.do(t, http.MethodPatch, "/members/"+m.ID, api.admin(t),
		`{"phone":null,"birthdate":null,"firstName":"Anna"}`)
	requireStatus(t, rec, http.StatusOK)
	got := decode[MemberResponse](t, rec).Member
	if got.Phone != "" || !got.Birthdate.IsNull() {
		t.Fatalf("expected cleared fields: phone=%q birthdate=%v", got.Phone, got.Birthdate)
	}
	if got.FirstName != "Anna" || got.Name != "Durand" {
		t.Fatalf("unexpected names: %q %q", got.FirstName, got.Name)
	}

	rec = api.do(t, http.MethodPatch, "/members/"+m.ID, api.admin(t), `{"name":null}`)
	requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestMembers_Update_IdempotentReplayAndConflictOnReuse(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)
	m := api.createMember(t, map[string]any{"name": "Durand", "firstName": "Ana"})

	rec := api.do(t, http.MethodPatch, "/members/"+m.ID, tok,
		map[string]any{"phone": "0600000000"}, "Idempotency-Key", "k1")
	requireStatus(t, rec, http.StatusOK)
	first := decode[MemberResponse](t, rec).Member

	api.clk.Advance(time.Minute)

	// Same key, same body after normalization: replay.
	rec = api.do(t, http.MethodPatch, "/members/"+m.ID, tok,
		map[string]any{"phone": "0600000000"}, "Idempotency-Key", "k1")
	requireStatus(t, rec, http.StatusOK)
	replay := decode[MemberResponse](t, rec).Member
	if !replay.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("expected replayed response: first=%v replay=%v", first.UpdatedAt, replay.UpdatedAt)
	}

	rec = api.do(t, http.MethodPatch, "/members/"+m.ID, tok,
		map[string]any{"phone": "0700000000"}, "Idempotency-Key", "k1")
	requireError(t, rec, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	// Without a key every call applies.
	rec = api.do(t, http.MethodPatch, "/members/"+m.ID, tok, map[string]any{"phone": "0600000000"})
	requireStatus(t, rec, http.StatusOK)
	if got := decode[MemberResponse](t, rec).Member; got.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("expected a fresh update")
	}
}

func TestMembers_Update_NormalizedNamesShareIdempotencyKey(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)
	m := api.createMember(t, map[string]any{"name": "Durand", "firstName": "Ana"})

	rec := api.do(t, http.MethodPatch, "/members/"+m.ID, tok,
		map[string]any{"firstName": "Ana  Maria"}, "Idempotency-Key", "k2")
	requireStatus(t, rec, http.StatusOK)

	rec = api.do(t, http.MethodPatch, "/members/"+m.ID, tok,
		map[string]any{"firstName": " Ana Maria "}, "Idempotency-Key", "k2")
	requireStatus(t, rec, http.StatusOK)
}

func TestMembers_Renew(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)
	m := api.createMember(t, map[string]any{
		"name": "Durand", "firstName": "Ana", "subscriptionType": "Mensuel", "startDate": "2025-01-15",
	})

	// Expired: an empty body restarts from today.
	rec := api.do(t, http.MethodPost, "/members/"+m.ID+"/renew", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	got := decode[MemberResponse](t, rec).Member
	start, _ := got.StartDate.Get()
	end, _ := got.EndDate.Get()
	if start.String() != "2025-03-10" || end.String() != "2025-04-09" {
		t.Fatalf("renewed period: %s..%s", start, end)
	}
	if got.IsExpired {
		t.Fatalf("expected active member after renewal")
	}

	rec = api.do(t, http.MethodPost, "/members/"+m.ID+"/renew", tok, map[string]any{"startDate": "2025-06-01"})
	requireStatus(t, rec, http.StatusOK)
	got = decode[MemberResponse](t, rec).Member
	if start, _ := got.StartDate.Get(); start.String() != "2025-06-01" {
		t.Fatalf("explicit start: %s", start)
	}
}

func TestMembers_Renew_WithoutSubscriptionType_422(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	m := api.createMember(t, map[string]any{"name": "Durand", "firstName": "Ana"})

	rec := api.do(t, http.MethodPost, "/members/"+m.ID+"/renew", api.admin(t), nil)
	requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestMembers_List_InvalidQuery_422(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)
	for _, q := range []string{"status=later", "limit=-1", "etudiant=maybe"} {
		rec := api.do(t, http.MethodGet, "/members?"+q, tok, nil)
		requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	}
}
