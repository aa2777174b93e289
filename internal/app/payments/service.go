package payments

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bodyforce/admin-api/internal/app/apperr"
	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/clock"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
	"github.com/bodyforce/admin-api/internal/ports/out/paymentrepo"
)

type Service struct {
	repo    paymentrepo.Repository
	members memberrepo.Repository
	clk     clock.Clock
}

func NewService(repo paymentrepo.Repository, members memberrepo.Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, members: members, clk: clk}
}

func (s *Service) Create(ctx context.Context, in CreatePaymentInput) (domain.Payment, error) {
	details := map[string]any{}
	if strings.TrimSpace(string(in.MemberID)) == "" {
		details["memberId"] = "required"
	}
	if msg := checkAmount(in.Amount); msg != "" {
		details["amount"] = msg
	}
	method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(in.Method)))
	if !method.Valid() {
		details["method"] = "must be one of especes, cheque, carte, virement"
	}
	if len(details) > 0 {
		return domain.Payment{}, apperr.Validation("invalid payment", details)
	}
	if err := s.ensureMember(ctx, in.MemberID); err != nil {
		return domain.Payment{}, err
	}

	now := s.clk.Now().UTC()
	p := domain.Payment{
		ID:                domain.PaymentID(uuid.NewString()),
		MemberID:          in.MemberID,
		Amount:            in.Amount,
		IsPaid:            in.IsPaid,
		EncaissementPrevu: dateOnlyPtr(in.EncaissementPrevu),
		Method:            method,
		Comment:           strings.TrimSpace(in.Comment),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return domain.Payment{}, mapRepoError(err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id domain.PaymentID) (domain.Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Payment{}, mapRepoError(err)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id domain.PaymentID, in UpdatePaymentInput) (domain.Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Payment{}, mapRepoError(err)
	}

	details := map[string]any{}
	if in.Amount.IsSpecified() {
		if in.Amount.IsNull() {
			details["amount"] = "must not be null"
		} else if msg := checkAmount(in.Amount.Value()); msg != "" {
			details["amount"] = msg
		}
		p.Amount = in.Amount.Value()
	}
	if in.IsPaid.IsSpecified() {
		if in.IsPaid.IsNull() {
			details["isPaid"] = "must not be null"
		}
		p.IsPaid = in.IsPaid.Value()
	}
	if in.Method.IsSpecified() {
		m := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(in.Method.Value())))
		if !m.Valid() {
			details["method"] = "must be one of especes, cheque, carte, virement"
		}
		p.Method = m
	}
	if len(details) > 0 {
		return domain.Payment{}, apperr.Validation("invalid payment", details)
	}
	if in.EncaissementPrevu.IsSpecified() {
		if in.EncaissementPrevu.IsNull() {
			p.EncaissementPrevu = nil
		} else {
			v := in.EncaissementPrevu.Value()
			p.EncaissementPrevu = dateOnlyPtr(&v)
		}
	}
	if in.Comment.IsSpecified() {
		p.Comment = strings.TrimSpace(in.Comment.Value())
	}

	p.UpdatedAt = s.clk.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return domain.Payment{}, mapRepoError(err)
	}
	return p, nil
}

func (s *Service) MarkPaid(ctx context.Context, id domain.PaymentID, paid bool) (domain.Payment, error) {
	return s.Update(ctx, id, UpdatePaymentInput{IsPaid: Some(paid)})
}

func (s *Service) Delete(ctx context.Context, id domain.PaymentID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// RemoveMemberPayments deletes every payment recorded for the member.
func (s *Service) RemoveMemberPayments(ctx context.Context, id domain.MemberID) error {
	_, err := s.repo.DeleteByMember(ctx, id)
	return err
}

func (s *Service) ListByMember(ctx context.Context, id domain.MemberID) ([]domain.Payment, error) {
	if _, err := s.members.GetByID(ctx, id); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return nil, apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
		}
		return nil, err
	}
	return s.repo.List(ctx, paymentrepo.Filter{MemberID: id})
}

func (s *Service) List(ctx context.Context, in ListInput) ([]domain.Payment, error) {
	return s.repo.List(ctx, paymentrepo.Filter{
		MemberID:  in.MemberID,
		Paid:      in.Paid,
		DueBefore: in.DueBefore,
		Range:     in.Range,
	})
}

// Summary totals the payments whose effective date falls in rng.
func (s *Service) Summary(ctx context.Context, rng domain.TimeRange) (Summary, error) {
	ps, err := s.repo.List(ctx, paymentrepo.Filter{Range: rng})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(ps, s.clk.Now().UTC()), nil
}

// Summarize totals ps. An unpaid payment is overdue once its planned date is
// before now's calendar date; it is not overdue on the day itself.
func Summarize(ps []domain.Payment, now time.Time) Summary {
	today := domain.CalendarDate(now)
	var sum Summary
	for _, p := range ps {
		if p.IsPaid {
			sum.Paid += p.Amount
			sum.CountPaid++
			continue
		}
		sum.Unpaid += p.Amount
		sum.CountUnpaid++
		if p.EncaissementPrevu != nil {
			sum.Expected += p.Amount
			if p.EncaissementPrevu.Before(today) {
				sum.Overdue += p.Amount
			}
		}
	}
	return sum
}

func (s *Service) ensureMember(ctx context.Context, id domain.MemberID) error {
	if _, err := s.members.GetByID(ctx, id); err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return apperr.Field("memberId", "unknown member")
		}
		return err
	}
	return nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, paymentrepo.ErrNotFound):
		return apperr.NotFound("PAYMENT_NOT_FOUND", "payment not found")
	case errors.Is(err, paymentrepo.ErrUnknownMember):
		return apperr.Field("memberId", "unknown member")
	case errors.Is(err, paymentrepo.ErrAlreadyExists):
		return apperr.Conflict("PAYMENT_ALREADY_EXISTS", "payment already exists")
	}
	return err
}

func checkAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "must be a number"
	}
	if v < 0 {
		return "must be >= 0"
	}
	return ""
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := domain.DateOnly(*t)
	return &d
}
