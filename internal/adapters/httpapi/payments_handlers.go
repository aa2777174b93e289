package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bodyforce/admin-api/internal/app/payments"
	"github.com/bodyforce/admin-api/internal/domain"
)

func paymentIDParam(r *http.Request) domain.PaymentID {
	return domain.PaymentID(chi.URLParam(r, "paymentId"))
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	paid, err := boolQuery(r, "paid")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	dueBefore, err := dateQuery(r, "dueBefore")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rng, err := dayRangeQuery(r, time.UTC)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ps, err := s.Payments.List(r.Context(), payments.ListInput{
		MemberID:  domain.MemberID(strings.TrimSpace(r.URL.Query().Get("memberId"))),
		Paid:      paid,
		DueBefore: dueBefore,
		Range:     rng,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentsFromDomain(ps))
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var body CreatePaymentRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.Payments.Create(r.Context(), payments.CreatePaymentInput{
		MemberID:          domain.MemberID(body.MemberID),
		Amount:            *body.Amount,
		IsPaid:            body.IsPaid,
		EncaissementPrevu: datePtr(body.EncaissementPrevu),
		Method:            body.Method,
		Comment:           body.Comment,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PaymentResponse{Payment: paymentFromDomain(p)})
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.Payments.Get(r.Context(), paymentIDParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentResponse{Payment: paymentFromDomain(p)})
}

func (s *Server) updatePayment(w http.ResponseWriter, r *http.Request) {
	var body UpdatePaymentRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.Payments.Update(r.Context(), paymentIDParam(r), updatePaymentInputFromRequest(body))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentResponse{Payment: paymentFromDomain(p)})
}

func (s *Server) markPaymentPaid(w http.ResponseWriter, r *http.Request) {
	var body MarkPaidRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.Payments.MarkPaid(r.Context(), paymentIDParam(r), *body.IsPaid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentResponse{Payment: paymentFromDomain(p)})
}

func (s *Server) deletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.Payments.Delete(r.Context(), paymentIDParam(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) paymentSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := dayRangeQuery(r, time.UTC)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := s.Payments.Summary(r.Context(), rng)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryFromApp(sum))
}
