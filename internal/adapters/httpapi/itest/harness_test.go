package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bodyforce/admin-api/internal/adapters/filesystem/blobstore"
	"github.com/bodyforce/admin-api/internal/adapters/httpapi"
	"github.com/bodyforce/admin-api/internal/adapters/mail/logmail"
	memblob "github.com/bodyforce/admin-api/internal/adapters/memory/blobstore"
	memclock "github.com/bodyforce/admin-api/internal/adapters/memory/clock"
	memidempotency "github.com/bodyforce/admin-api/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/bodyforce/admin-api/internal/adapters/memory/memberrepo"
	mempaymentrepo "github.com/bodyforce/admin-api/internal/adapters/memory/paymentrepo"
	mempresencerepo "github.com/bodyforce/admin-api/internal/adapters/memory/presencerepo"
	memurlcache "github.com/bodyforce/admin-api/internal/adapters/memory/urlcache"
	memuserrepo "github.com/bodyforce/admin-api/internal/adapters/memory/userrepo"
	pgidempotency "github.com/bodyforce/admin-api/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/bodyforce/admin-api/internal/adapters/postgres/memberrepo"
	pgpaymentrepo "github.com/bodyforce/admin-api/internal/adapters/postgres/paymentrepo"
	pgpresencerepo "github.com/bodyforce/admin-api/internal/adapters/postgres/presencerepo"
	postgres_testutil "github.com/bodyforce/admin-api/internal/adapters/postgres/testutil"
	pguserrepo "github.com/bodyforce/admin-api/internal/adapters/postgres/userrepo"
	"github.com/bodyforce/admin-api/internal/app/auth"
	"github.com/bodyforce/admin-api/internal/app/files"
	"github.com/bodyforce/admin-api/internal/app/members"
	"github.com/bodyforce/admin-api/internal/app/payments"
	"github.com/bodyforce/admin-api/internal/app/presences"
	"github.com/bodyforce/admin-api/internal/app/stats"
	"github.com/bodyforce/admin-api/internal/platform/auth/tokens"
	"github.com/bodyforce/admin-api/internal/platform/config"
	"github.com/bodyforce/admin-api/internal/platform/logging"
	blobstoreport "github.com/bodyforce/admin-api/internal/ports/out/blobstore"
	idempotencyport "github.com/bodyforce/admin-api/internal/ports/out/idempotency"
	memberrepoport "github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
	paymentrepoport "github.com/bodyforce/admin-api/internal/ports/out/paymentrepo"
	presencerepoport "github.com/bodyforce/admin-api/internal/ports/out/presencerepo"
	userrepoport "github.com/bodyforce/admin-api/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	clk     *memclock.ManualClock
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC))
	log := logging.Discard()

	var (
		memberRepo   memberrepoport.Repository
		presenceRepo presencerepoport.Repository
		paymentRepo  paymentrepoport.Repository
		userRepo     userrepoport.Repository
		idemStore    idempotencyport.Store
		objects      blobstoreport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		memberRepo = pgmemberrepo.NewRepo(pool)
		presenceRepo = pgpresencerepo.NewRepo(pool)
		paymentRepo = pgpaymentrepo.NewRepo(pool)
		userRepo = pguserrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStoreWithTTL(pool, time.Hour, clk)
		fs, err := blobstore.NewStore(t.TempDir())
		if err != nil {
			t.Fatalf("filesystem blobstore: %v", err)
		}
		objects = fs
	case backendMemory:
		memberRepo = memmemberrepo.NewRepo()
		presenceRepo = mempresencerepo.NewRepo()
		paymentRepo = mempaymentrepo.NewRepo()
		userRepo = memuserrepo.NewRepo()
		idemStore = memidempotency.NewStoreWithTTL(time.Hour, clk)
		objects = memblob.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	tm := tokens.NewWithClock(config.AuthConfig{
		Mode:     "jwt",
		Secret:   []byte(strings.Repeat("i", 32)),
		Issuer:   "itest-issuer",
		TokenTTL: time.Hour,
	}, clk)

	filesSvc := files.NewService(objects, memurlcache.NewCache(), memberRepo, clk, "http://itest.local")
	filesSvc.Log = log
	paymentSvc := payments.NewService(paymentRepo, memberRepo, clk)
	memberSvc := members.NewService(memberRepo, clk)
	memberSvc.Files = filesSvc
	memberSvc.Payments = paymentSvc
	memberSvc.Log = log
	statsSvc := stats.NewService(presenceRepo, memberRepo, paymentSvc, clk)
	statsSvc.Log = log
	authSvc := auth.NewService(userRepo, memberRepo, tm, logmail.New(log), clk, auth.Config{
		InvitationTTL:   48 * time.Hour,
		FrontendBaseURL: "http://itest.local",
		BcryptCost:      bcrypt.MinCost,
	})
	authSvc.Log = log

	api := httpapi.NewServer(memberSvc, presences.NewService(presenceRepo, memberRepo, clk),
		paymentSvc, statsSvc, filesSvc, authSvc, idemStore, clk)
	api.Log = log

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// We pass empty default subject to ensure requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	authMW := httpapi.NewDevAuthMiddleware("")
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: authMW})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clk:     clk,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

// caller identifies the dev-auth subject and role of a request.
type caller struct {
	subject string
	role    string
}

var (
	anonymous = caller{}
	admin     = caller{subject: "itest|admin", role: "admin"}
	terminal  = caller{subject: "itest|terminal", role: "terminal"}
)

func (s *testServer) doJSON(t *testing.T, method string, path string, who caller, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if who.subject != "" {
		req.Header.Set("X-Debug-Subject", who.subject)
	}
	if who.role != "" {
		req.Header.Set("X-Debug-Role", who.role)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		Details   map[string]any `json:"details"`
		RequestID string         `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) errorResponse {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
	return got
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
