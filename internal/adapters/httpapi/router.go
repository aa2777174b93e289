package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bodyforce/admin-api/internal/domain"
)

type RouterOptions struct {
	// AuthMiddleware authenticates every non-public route. Required.
	AuthMiddleware func(http.Handler) http.Handler
	// Metrics, when set, receives per-request observations.
	Metrics HTTPObserver
	// MetricsHandler, when set, is served on GET /metrics.
	MetricsHandler http.Handler
}

// NewRouterWithOptions constructs the API HTTP router.
func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger(), opts.Metrics))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	// Public.
	r.Get("/healthz", s.healthz)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}
	r.Post("/auth/signup", s.signUp)
	r.Post("/auth/signin", s.signIn)
	r.Get("/invitations/{token}", s.checkInvitation)
	r.Post("/invitations/{token}/accept", s.acceptInvitation)
	r.Get("/storage/{bucket}/*", s.serveObject)

	r.Group(func(r chi.Router) {
		r.Use(opts.AuthMiddleware)

		r.Get("/me", s.me)
		// Badge readers hold a terminal token; members cannot record scans.
		r.With(RequireRole(domain.RoleAdmin, domain.RoleTerminal)).Post("/presences/scan", s.scanBadge)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleAdmin))

			r.Route("/members", func(r chi.Router) {
				r.Get("/", s.listMembers)
				r.Post("/", s.createMember)
				r.Get("/counts", s.memberCounts)
				r.Route("/{memberId}", func(r chi.Router) {
					r.Get("/", s.getMember)
					r.Patch("/", s.updateMember)
					r.Delete("/", s.deleteMember)
					r.Post("/renew", s.renewMember)
					r.Post("/invitation", s.inviteMember)
					r.Delete("/invitation", s.revokeInvitation)
					r.Post("/files", s.uploadMemberFile)
					r.Delete("/files", s.deleteMemberFile)
					r.Put("/photo", s.uploadPhoto)
					r.Get("/payments", s.listMemberPayments)
				})
			})

			r.Route("/presences", func(r chi.Router) {
				r.Get("/", s.listPresences)
				r.Post("/", s.recordPresence)
				r.Post("/clean-duplicates", s.cleanDuplicates)
				r.Get("/by-member", s.memberPresences)
				r.Delete("/{presenceId}", s.deletePresence)
			})
			r.Get("/planning", s.planning)

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", s.listPayments)
				r.Post("/", s.createPayment)
				r.Get("/summary", s.paymentSummary)
				r.Route("/{paymentId}", func(r chi.Router) {
					r.Get("/", s.getPayment)
					r.Patch("/", s.updatePayment)
					r.Delete("/", s.deletePayment)
					r.Put("/paid", s.markPaymentPaid)
				})
			})

			r.Get("/stats", s.getStats)
			r.Get("/reports/stats.pdf", s.statsPDF)
			r.Get("/reports/presences.csv", s.presencesCSV)
		})
	})
	return r
}
