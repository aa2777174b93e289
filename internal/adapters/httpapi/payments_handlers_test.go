package httpapi

import (
	"net/http"
	"testing"
)

func TestPayments_Lifecycle(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)
	m := api.createMember(t, map[string]any{"name": "Durand", "firstName": "Ana"})

	rec := api.do(t, http.MethodPost, "/payments", tok, map[string]any{
		"memberId":          m.ID,
		"amount":            45.5,
		"method":            " Cheque ",
		"encaissementPrevu": "2025-03-01",
		"comment":           "  1/3 ",
	})
	requireStatus(t, rec, http.StatusCreated)
	p := decode[PaymentResponse](t, rec).Payment
	if p.Method != "cheque" || p.Comment != "1/3" || p.IsPaid {
		t.Fatalf("unexpected payment: %+v", p)
	}
	if due, err := p.EncaissementPrevu.Get(); err != nil || due.String() != "2025-03-01" {
		t.Fatalf("encaissementPrevu: %v err=%v", due, err)
	}

	rec = api.do(t, http.MethodPost, "/payments", tok, map[string]any{"memberId": m.ID, "amount": 30, "isPaid": true})
	requireStatus(t, rec, http.StatusCreated)

	rec = api.do(t, http.MethodGet, "/payments/summary", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	sum := decode[PaymentSummaryJSON](t, rec)
	if sum.Paid != 30 || sum.Unpaid != 45.5 || sum.Overdue != 45.5 || sum.CountPaid != 1 || sum.CountUnpaid != 1 {
		t.Fatalf("summary: %+v", sum)
	}

	rec = api.do(t, http.MethodGet, "/payments?paid=false", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[PaymentListResponse](t, rec).Payments; len(got) != 1 || got[0].ID != p.ID {
		t.Fatalf("unpaid list: %+v", got)
	}

	rec = api.do(t, http.MethodGet, "/payments?dueBefore=2025-03-02", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[PaymentListResponse](t, rec).Payments; len(got) != 1 {
		t.Fatalf("dueBefore list: %+v", got)
	}

	rec = api.do(t, http.MethodGet, "/members/"+m.ID+"/payments", tok, nil)
	requireStatus(t, rec, http.StatusOK)
	if got := decode[PaymentListResponse](t, rec).Payments; len(got) != 2 {
		t.Fatalf("member payments: %d", len(got))
	}

	rec = api.do(t, http.MethodPut, "/payments/"+p.ID+"/paid", tok, map[string]any{"isPaid": true})
	requireStatus(t, rec, http.StatusOK)
	if !decode[PaymentResponse](t, rec).Payment.IsPaid {
		t.Fatalf("expected paid")
	}

	rec = api.do(t, http.MethodPatch, "/payments/"+p.ID, tok, `{"encaissementPrevu":null,"amount":50}`)
	requireStatus(t, rec, http.StatusOK)
	got := decode[PaymentResponse](t, rec).Payment
	if got.Amount != 50 || !got.EncaissementPrevu.IsNull() {
		t.Fatalf("patched: %+v", got)
	}

	rec = api.do(t, http.MethodGet, "/payments/"+p.ID, tok, nil)
	requireStatus(t, rec, http.StatusOK)

	rec = api.do(t, http.MethodDelete, "/payments/"+p.ID, tok, nil)
	requireStatus(t, rec, http.StatusNoContent)
	rec = api.do(t, http.MethodGet, "/payments/"+p.ID, tok, nil)
	requireError(t, rec, http.StatusNotFound, "PAYMENT_NOT_FOUND")
}

func TestPayments_Create_Validation(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	tok := api.admin(t)

	rec := api.do(t, http.MethodPost, "/payments", tok, map[string]any{"memberId": "m-1"})
	er := requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	if details, _ := er.Error.Details.Get(); details["amount"] == nil {
		t.Fatalf("details: %v", details)
	}

	rec = api.do(t, http.MethodPost, "/payments", tok, map[string]any{"memberId": "nobody", "amount": 10})
	er = requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	if details, _ := er.Error.Details.Get(); details["memberId"] == nil {
		t.Fatalf("details: %v", details)
	}

	rec = api.do(t, http.MethodPost, "/payments", tok, map[string]any{"memberId": "nobody", "amount": -1, "method": "bitcoin"})
	er = requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	details, _ := er.Error.Details.Get()
	if details["amount"] == nil || details["method"] == nil {
		t.Fatalf("details: %v", details)
	}

	rec = api.do(t, http.MethodPut, "/payments/p-1/paid", tok, map[string]any{})
	requireError(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestPayments_UnknownMember_404(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/members/nobody/payments", api.admin(t), nil)
	requireError(t, rec, http.StatusNotFound, "MEMBER_NOT_FOUND")
}
