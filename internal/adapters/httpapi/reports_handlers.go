package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bodyforce/admin-api/internal/app/reports"
)

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.periodQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep, err := s.Stats.Report(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsFromApp(rep))
}

func (s *Server) statsPDF(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.periodQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep, err := s.Stats.Report(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	pdf, name, err := s.Reports.RenderPDF(rep)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachment(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) presencesCSV(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.periodQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep, err := s.Stats.Report(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Rendered into memory so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := s.Reports.RenderCSV(&buf, rep); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(reports.CSVFilename(rep)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
