package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bodyforce/admin-api/internal/domain"
)

func (s *Server) scanBadge(w http.ResponseWriter, r *http.Request) {
	var body RecordPresenceRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	// Terminals do not choose the scan time.
	p, err := s.Presences.Record(r.Context(), body.BadgeID, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presenceFromDomain(p))
}

func (s *Server) recordPresence(w http.ResponseWriter, r *http.Request) {
	var body RecordPresenceRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.Presences.Record(r.Context(), body.BadgeID, body.Timestamp)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presenceFromDomain(p))
}

func (s *Server) listPresences(w http.ResponseWriter, r *http.Request) {
	rng, err := dayRangeQuery(r, s.location())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ps, err := s.Presences.List(r.Context(), rng, r.URL.Query().Get("badgeId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := PresenceListResponse{Presences: make([]PresenceJSON, 0, len(ps)), Total: len(ps)}
	for _, p := range ps {
		out.Presences = append(out.Presences, presenceFromDomain(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deletePresence(w http.ResponseWriter, r *http.Request) {
	id := domain.PresenceID(chi.URLParam(r, "presenceId"))
	if err := s.Presences.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cleanDuplicates(w http.ResponseWriter, r *http.Request) {
	n, err := s.Presences.CleanDuplicates(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger().InfoContext(r.Context(), "duplicate presences removed", "removed", n)
	writeJSON(w, http.StatusOK, CleanDuplicatesResponse{Removed: n})
}

func (s *Server) memberPresences(w http.ResponseWriter, r *http.Request) {
	rng, err := dayRangeQuery(r, s.location())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mp, err := s.Presences.MemberPresences(r.Context(), rng)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberPresencesFromApp(mp))
}

// planning serves the grid for the week containing ?week (default: today).
func (s *Server) planning(w http.ResponseWriter, r *http.Request) {
	week, err := dateQuery(r, "week")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	day := s.today()
	if week != nil {
		day = *week
	}
	p, err := s.Presences.Planning(r.Context(), day)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, planningFromApp(p))
}
