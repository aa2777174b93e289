package members

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bodyforce/admin-api/internal/app/apperr"
	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/clock"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
)

// ObjectCleaner removes the stored objects (documents, photo) that belong to a member.
type ObjectCleaner interface {
	RemoveMemberObjects(ctx context.Context, m domain.Member) error
}

// PaymentCleaner removes the payments recorded for a member.
type PaymentCleaner interface {
	RemoveMemberPayments(ctx context.Context, id domain.MemberID) error
}

type Service struct {
	repo memberrepo.Repository
	clk  clock.Clock

	// Files and Payments are optional; when nil, Delete leaves the member's
	// objects and payments in place.
	Files    ObjectCleaner
	Payments PaymentCleaner
	Log      *slog.Logger
}

func NewService(repo memberrepo.Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clk: clk, Log: slog.Default()}
}

func (s *Service) Get(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Member{}, mapRepoError(err)
	}
	return m, nil
}

func (s *Service) Create(ctx context.Context, in CreateMemberInput) (domain.Member, error) {
	name := domain.NormalizeHumanName(in.Name)
	firstName := domain.NormalizeHumanName(in.FirstName)
	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if firstName == "" {
		details["firstName"] = "required"
	}
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if err := validateEmail(email); err != nil {
			details["email"] = err.Error()
		}
	}
	subType, err := parseSubscriptionType(in.SubscriptionType)
	if err != nil {
		details["subscriptionType"] = err.Error()
	}
	if !validGender(in.Gender) {
		details["gender"] = "must be one of Homme, Femme"
	}
	if len(details) > 0 {
		return domain.Member{}, apperr.Validation("invalid member", details)
	}

	now := s.clk.Now().UTC()
	m := domain.Member{
		ID:               domain.MemberID(uuid.NewString()),
		Name:             name,
		FirstName:        firstName,
		Birthdate:        dateOnlyPtr(in.Birthdate),
		Gender:           in.Gender,
		Address:          strings.TrimSpace(in.Address),
		Phone:            strings.TrimSpace(in.Phone),
		Mobile:           strings.TrimSpace(in.Mobile),
		Email:            email,
		SubscriptionType: subType,
		StartDate:        dateOnlyPtr(in.StartDate),
		EndDate:          dateOnlyPtr(in.EndDate),
		BadgeID:          domain.NormalizeBadgeID(in.BadgeID),
		Photo:            strings.TrimSpace(in.Photo),
		Etudiant:         in.Etudiant,
		Invitation:       domain.Invitation{Status: domain.InvitationNone},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if m.EndDate == nil {
		if err := deriveEndDate(&m); err != nil {
			return domain.Member{}, err
		}
	}
	if err := checkDates(m); err != nil {
		return domain.Member{}, err
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return domain.Member{}, mapRepoError(err)
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, id domain.MemberID, in UpdateMemberInput) (domain.Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Member{}, mapRepoError(err)
	}

	details := map[string]any{}
	if in.Name.IsSpecified() {
		v := domain.NormalizeHumanName(in.Name.Value())
		if in.Name.IsNull() || v == "" {
			details["name"] = "required"
		}
		m.Name = v
	}
	if in.FirstName.IsSpecified() {
		v := domain.NormalizeHumanName(in.FirstName.Value())
		if in.FirstName.IsNull() || v == "" {
			details["firstName"] = "required"
		}
		m.FirstName = v
	}
	if in.Email.IsSpecified() {
		email := strings.TrimSpace(in.Email.Value())
		if !in.Email.IsNull() && email != "" {
			if err := validateEmail(email); err != nil {
				details["email"] = err.Error()
			}
		}
		m.Email = email
	}
	if in.Gender.IsSpecified() {
		g := in.Gender.Value()
		if !validGender(g) {
			details["gender"] = "must be one of Homme, Femme"
		}
		m.Gender = g
	}
	if in.SubscriptionType.IsSpecified() {
		t, err := parseSubscriptionType(in.SubscriptionType.Value())
		if err != nil {
			details["subscriptionType"] = err.Error()
		}
		m.SubscriptionType = t
	}
	if len(details) > 0 {
		return domain.Member{}, apperr.Validation("invalid member", details)
	}

	applyString(&m.Address, in.Address)
	applyString(&m.Phone, in.Phone)
	applyString(&m.Mobile, in.Mobile)
	applyString(&m.Photo, in.Photo)
	if in.BadgeID.IsSpecified() {
		m.BadgeID = domain.NormalizeBadgeID(in.BadgeID.Value())
	}
	if in.Etudiant.IsSpecified() {
		m.Etudiant = in.Etudiant.Value()
	}
	applyDate(&m.Birthdate, in.Birthdate)
	applyDate(&m.StartDate, in.StartDate)
	applyDate(&m.EndDate, in.EndDate)

	periodChanged := in.StartDate.IsSpecified() || in.SubscriptionType.IsSpecified()
	if periodChanged && !in.EndDate.IsSpecified() {
		if err := deriveEndDate(&m); err != nil {
			return domain.Member{}, err
		}
	}
	if err := checkDates(m); err != nil {
		return domain.Member{}, err
	}

	m.UpdatedAt = s.clk.Now().UTC()
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, mapRepoError(err)
	}
	return m, nil
}

// Delete removes the member record, then its payments and stored objects.
// Cleanup failures are logged; the member is gone either way.
func (s *Service) Delete(ctx context.Context, id domain.MemberID) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	if s.Payments != nil {
		if err := s.Payments.RemoveMemberPayments(ctx, id); err != nil {
			s.logger().WarnContext(ctx, "member payments not removed", "member_id", string(id), "err", err)
		}
	}
	if s.Files != nil {
		if err := s.Files.RemoveMemberObjects(ctx, m); err != nil {
			s.logger().WarnContext(ctx, "member objects not removed", "member_id", string(id), "err", err)
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, in ListInput) (ListResult, error) {
	status, ok := parseStatus(in.Status)
	if !ok {
		return ListResult{}, apperr.Field("status", "must be one of all, active, expired")
	}
	subType, err := parseSubscriptionType(in.SubscriptionType)
	if err != nil {
		return ListResult{}, apperr.Field("subscriptionType", err.Error())
	}
	if in.Limit < 0 {
		return ListResult{}, apperr.Field("limit", "must be >= 0")
	}
	if in.Offset < 0 {
		return ListResult{}, apperr.Field("offset", "must be >= 0")
	}
	page, err := s.repo.List(ctx, memberrepo.Filter{
		Query:            in.Query,
		Status:           status,
		Etudiant:         in.Etudiant,
		SubscriptionType: subType,
		Now:              s.clk.Now().UTC(),
		Limit:            in.Limit,
		Offset:           in.Offset,
	})
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Members: page.Members, Total: page.Total}, nil
}

// Renew starts a new subscription period of the member's current type. Without an
// explicit start, an active member continues the day after their end date and an
// expired member restarts today.
func (s *Service) Renew(ctx context.Context, id domain.MemberID, start *time.Time) (domain.Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Member{}, mapRepoError(err)
	}
	if m.SubscriptionType == "" {
		return domain.Member{}, apperr.Field("subscriptionType", "member has no subscription type")
	}

	now := s.clk.Now().UTC()
	var from time.Time
	switch {
	case start != nil:
		from = domain.DateOnly(*start)
	case !m.Expired(now):
		from = m.EndDate.AddDate(0, 0, 1)
	default:
		from = domain.DateOnly(now)
	}
	end, err := domain.ComputeEndDate(from, m.SubscriptionType)
	if err != nil {
		return domain.Member{}, apperr.Field("subscriptionType", err.Error())
	}
	m.StartDate = &from
	m.EndDate = &end
	m.UpdatedAt = now
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, mapRepoError(err)
	}
	return m, nil
}

func (s *Service) Counts(ctx context.Context) (Counts, error) {
	now := s.clk.Now().UTC()
	students := true
	count := func(f memberrepo.Filter) (int, error) {
		f.Now = now
		f.Limit = 1
		p, err := s.repo.List(ctx, f)
		if err != nil {
			return 0, err
		}
		return p.Total, nil
	}

	var c Counts
	var err error
	if c.Total, err = count(memberrepo.Filter{Status: memberrepo.StatusAll}); err != nil {
		return Counts{}, err
	}
	if c.Active, err = count(memberrepo.Filter{Status: memberrepo.StatusActive}); err != nil {
		return Counts{}, err
	}
	c.Expired = c.Total - c.Active
	if c.Students, err = count(memberrepo.Filter{Status: memberrepo.StatusAll, Etudiant: &students}); err != nil {
		return Counts{}, err
	}
	return c, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, memberrepo.ErrNotFound):
		return apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
	case errors.Is(err, memberrepo.ErrBadgeTaken):
		return &apperr.Error{
			Status:  409,
			Code:    "BADGE_TAKEN",
			Message: "badge is already assigned to another member",
			Details: map[string]any{"badgeId": "already in use"},
		}
	case errors.Is(err, memberrepo.ErrAlreadyExists):
		return apperr.Conflict("MEMBER_ALREADY_EXISTS", "member already exists")
	}
	return err
}

func deriveEndDate(m *domain.Member) error {
	if m.StartDate == nil || m.SubscriptionType == "" {
		return nil
	}
	end, err := domain.ComputeEndDate(*m.StartDate, m.SubscriptionType)
	if err != nil {
		return apperr.Field("subscriptionType", err.Error())
	}
	m.EndDate = &end
	return nil
}

func checkDates(m domain.Member) error {
	if m.StartDate != nil && m.EndDate != nil && m.EndDate.Before(*m.StartDate) {
		return apperr.Field("endDate", "must not be before startDate")
	}
	return nil
}

func parseSubscriptionType(raw string) (domain.SubscriptionType, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domain.ParseSubscriptionType(raw)
}

func validGender(g domain.Gender) bool {
	switch g {
	case domain.GenderMale, domain.GenderFemale, domain.GenderOther:
		return true
	}
	return false
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func applyString(dst *string, o Optional[string]) {
	if !o.IsSpecified() {
		return
	}
	if o.IsNull() {
		*dst = ""
		return
	}
	*dst = strings.TrimSpace(o.Value())
}

func applyDate(dst **time.Time, o Optional[time.Time]) {
	if !o.IsSpecified() {
		return
	}
	if o.IsNull() {
		*dst = nil
		return
	}
	d := domain.DateOnly(o.Value())
	*dst = &d
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := domain.DateOnly(*t)
	return &d
}
