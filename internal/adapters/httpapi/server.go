package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bodyforce/admin-api/internal/app/apperr"
	"github.com/bodyforce/admin-api/internal/app/auth"
	"github.com/bodyforce/admin-api/internal/app/files"
	"github.com/bodyforce/admin-api/internal/app/members"
	"github.com/bodyforce/admin-api/internal/app/payments"
	"github.com/bodyforce/admin-api/internal/app/presences"
	"github.com/bodyforce/admin-api/internal/app/reports"
	"github.com/bodyforce/admin-api/internal/app/stats"
	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/clock"
	"github.com/bodyforce/admin-api/internal/ports/out/idempotency"
)

// Server holds the application services behind the HTTP handlers.
type Server struct {
	Members   *members.Service
	Presences *presences.Service
	Payments  *payments.Service
	Stats     *stats.Service
	Reports   *reports.Renderer
	Files     *files.Service
	Auth      *auth.Service
	Idem      idempotency.Store

	Clock    clock.Clock
	Log      *slog.Logger
	// Location is the gym's time zone. Today and presence day filters are
	// read in it. Nil means UTC.
	Location *time.Location

	// MaxUploadBytes bounds multipart uploads. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

const DefaultMaxUploadBytes = 20 << 20

func NewServer(
	membersSvc *members.Service,
	presencesSvc *presences.Service,
	paymentsSvc *payments.Service,
	statsSvc *stats.Service,
	filesSvc *files.Service,
	authSvc *auth.Service,
	idem idempotency.Store,
	clk clock.Clock,
) *Server {
	return &Server{
		Members:   membersSvc,
		Presences: presencesSvc,
		Payments:  paymentsSvc,
		Stats:     statsSvc,
		Reports:   reports.NewRenderer(),
		Files:     filesSvc,
		Auth:      authSvc,
		Idem:      idem,
		Clock:     clk,
		Log:       slog.Default(),
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func (s *Server) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Server) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// today is the gym's current calendar date.
func (s *Server) today() time.Time {
	return domain.CalendarDate(s.now().In(s.location()))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeAppError(w, r, s.logger(), err)
}

func (s *Server) maxUpload() int64 {
	if s.MaxUploadBytes > 0 {
		return s.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Query and path helpers.

func memberIDParam(r *http.Request) domain.MemberID {
	return domain.MemberID(chi.URLParam(r, "memberId"))
}

func dateQuery(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(raw)
	if err != nil {
		return nil, apperr.Field(name, "must be a date (YYYY-MM-DD)")
	}
	return &t, nil
}

func boolQuery(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Field(name, "must be true or false")
	}
	return &b, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Field(name, "must be a non-negative integer")
	}
	return n, nil
}

// dayRangeQuery reads start/end as inclusive days starting at midnight in loc.
// Missing bounds are open.
func dayRangeQuery(r *http.Request, loc *time.Location) (domain.TimeRange, error) {
	start, err := dateQuery(r, "start")
	if err != nil {
		return domain.TimeRange{}, err
	}
	end, err := dateQuery(r, "end")
	if err != nil {
		return domain.TimeRange{}, err
	}
	var rng domain.TimeRange
	if start != nil {
		rng.From = domain.StartOfDay(*start, loc)
	}
	if end != nil {
		rng.To = domain.StartOfDay(end.AddDate(0, 0, 1), loc)
	}
	return rng, nil
}

// DefaultReportDays is the period used by stats and reports when the caller
// gives no start date.
const DefaultReportDays = 30

// periodQuery reads the inclusive report period. end defaults to today and
// start to DefaultReportDays days before end.
func (s *Server) periodQuery(r *http.Request) (time.Time, time.Time, error) {
	start, err := dateQuery(r, "start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := dateQuery(r, "end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e := s.today()
	if end != nil {
		e = domain.CalendarDate(*end)
	}
	st := e.AddDate(0, 0, -(DefaultReportDays - 1))
	if start != nil {
		st = domain.CalendarDate(*start)
	}
	return st, e, nil
}
