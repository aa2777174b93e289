package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bodyforce/admin-api/internal/adapters/mail/logmail"
	memblob "github.com/bodyforce/admin-api/internal/adapters/memory/blobstore"
	memclock "github.com/bodyforce/admin-api/internal/adapters/memory/clock"
	memidempotency "github.com/bodyforce/admin-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/bodyforce/admin-api/internal/adapters/memory/memberrepo"
	mempaymentrepo "github.com/bodyforce/admin-api/internal/adapters/memory/paymentrepo"
	mempresencerepo "github.com/bodyforce/admin-api/internal/adapters/memory/presencerepo"
	memurlcache "github.com/bodyforce/admin-api/internal/adapters/memory/urlcache"
	memuserrepo "github.com/bodyforce/admin-api/internal/adapters/memory/userrepo"
	"github.com/bodyforce/admin-api/internal/app/auth"
	"github.com/bodyforce/admin-api/internal/app/files"
	"github.com/bodyforce/admin-api/internal/app/members"
	"github.com/bodyforce/admin-api/internal/app/payments"
	"github.com/bodyforce/admin-api/internal/app/presences"
	"github.com/bodyforce/admin-api/internal/app/stats"
	"github.com/bodyforce/admin-api/internal/platform/auth/tokens"
	"github.com/bodyforce/admin-api/internal/platform/config"
	"github.com/bodyforce/admin-api/internal/platform/logging"
	"github.com/bodyforce/admin-api/internal/platform/metrics"
)

// testNow is a Monday.
var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

type testAPI struct {
	h       http.Handler
	clk     *memclock.ManualClock
	tokens  *tokens.Manager
	members *memmemberrepo.Repo
	mail    *logmail.Mailer
	metrics *metrics.Metrics
}

// invitationTTL is short so tests can expire invitations without advancing a week.
const invitationTTL = 48 * time.Hour

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIIn(t, nil)
}

// newTestAPIIn builds the API with the gym's time zone set to loc.
func newTestAPIIn(t *testing.T, loc *time.Location) *testAPI {
	t.Helper()

	clk := memclock.NewManualClock(testNow)
	tm := tokens.NewWithClock(config.AuthConfig{
		Mode:     "jwt",
		Secret:   []byte(strings.Repeat("k", 32)),
		Issuer:   "bodyforce-test",
		TokenTTL: time.Hour,
	}, clk)
	log := logging.Discard()

	memberRepo := memmemberrepo.NewRepo()
	presenceRepo := mempresencerepo.NewRepo()
	mail := logmail.New(log)

	filesSvc := files.NewService(memblob.NewStore(), memurlcache.NewCache(), memberRepo, clk, "http://api.test")
	filesSvc.Log = log
	paymentSvc := payments.NewService(mempaymentrepo.NewRepo(), memberRepo, clk)
	memberSvc := members.NewService(memberRepo, clk)
	memberSvc.Files = filesSvc
	memberSvc.Payments = paymentSvc
	memberSvc.Log = log
	statsSvc := stats.NewService(presenceRepo, memberRepo, paymentSvc, clk)
	statsSvc.Log = log
	statsSvc.Location = loc
	authSvc := auth.NewService(memuserrepo.NewRepo(), memberRepo, tm, mail, clk, auth.Config{
		InvitationTTL:   invitationTTL,
		FrontendBaseURL: "http://app.test",
		BcryptCost:      bcrypt.MinCost,
	})
	authSvc.Log = log

	m := metrics.New()
	presenceSvc := presences.NewService(presenceRepo, memberRepo, clk)
	presenceSvc.Metrics = m
	presenceSvc.Location = loc

	api := NewServer(memberSvc, presenceSvc, paymentSvc, statsSvc, filesSvc, authSvc,
		memidempotency.NewStoreWithTTL(time.Hour, clk), clk)
	api.Log = log
	api.Reports.Metrics = m
	api.Location = loc

	h := NewRouterWithOptions(api, RouterOptions{
		AuthMiddleware: NewAuthMiddleware(tm),
		Metrics:        m,
		MetricsHandler: m.Handler(),
	})
	return &testAPI{h: h, clk: clk, tokens: tm, members: memberRepo, mail: mail, metrics: m}
}

func (a *testAPI) token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, _, err := a.tokens.Issue(subject, role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (a *testAPI) admin(t *testing.T) string { return a.token(t, "admin-1", "admin") }

// do sends a request. body may be nil, a string (sent raw) or a value encoded as JSON.
func (a *testAPI) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status=%d want=%d body=%s", rec.Code, want, rec.Body.String())
	}
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	requireStatus(t, rec, status)
	er := decode[ErrorResponse](t, rec)
	if er.Error.Code != code {
		t.Fatalf("code=%q want=%q body=%s", er.Error.Code, code, rec.Body.String())
	}
	return er
}

func (a *testAPI) createMember(t *testing.T, body map[string]any) MemberJSON {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/members", a.admin(t), body)
	requireStatus(t, rec, http.StatusCreated)
	return decode[MemberResponse](t, rec).Member
}
