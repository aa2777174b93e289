package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bodyforce/admin-api/internal/app/apperr"
	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/clock"
	"github.com/bodyforce/admin-api/internal/ports/out/mailer"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
	"github.com/bodyforce/admin-api/internal/ports/out/userrepo"
)

const (
	MinPasswordLength    = 8
	DefaultInvitationTTL = 7 * 24 * time.Hour
	tokenBytes           = 32
)

// TokenIssuer mints bearer tokens; satisfied by *tokens.Manager.
type TokenIssuer interface {
	Issue(subject, role string) (string, time.Time, error)
}

// MailObserver is notified of failed deliveries.
type MailObserver interface {
	MailFailed()
}

type Config struct {
	// AllowSignup opens SignUp once an account exists. The first account can
	// always be created.
	AllowSignup     bool
	InvitationTTL   time.Duration
	FrontendBaseURL string
	BcryptCost      int
}

type Service struct {
	users   userrepo.Repository
	members memberrepo.Repository
	tokens  TokenIssuer
	mail    mailer.Mailer
	clk     clock.Clock
	cfg     Config

	Log     *slog.Logger
	Metrics MailObserver
}

func NewService(users userrepo.Repository, members memberrepo.Repository, tokens TokenIssuer, m mailer.Mailer, clk clock.Clock, cfg Config) *Service {
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = DefaultInvitationTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	cfg.FrontendBaseURL = strings.TrimRight(cfg.FrontendBaseURL, "/")
	return &Service{users: users, members: members, tokens: tokens, mail: m, clk: clk, cfg: cfg, Log: slog.Default()}
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// SignUp creates a staff account. The first account is an admin; later ones
// (only when AllowSignup is set) get the member role.
func (s *Service) SignUp(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if err := checkPassword(password); err != nil {
		return Session{}, err
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return Session{}, err
	}
	if n > 0 && !s.cfg.AllowSignup {
		return Session{}, &apperr.Error{Status: http.StatusForbidden, Code: "SIGNUP_DISABLED", Message: "sign-up is disabled"}
	}
	role := domain.RoleMember
	if n == 0 {
		role = domain.RoleAdmin
	}

	u, err := s.createUser(ctx, email, password, role, nil)
	if err != nil {
		return Session{}, err
	}
	return s.session(u)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	invalid := &apperr.Error{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return Session{}, invalid
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return Session{}, invalid
	}
	return s.session(u)
}

// Profile is the signed-in user and, for member accounts, their member record.
type Profile struct {
	User   domain.User
	Member *domain.Member
}

func (s *Service) Me(ctx context.Context, subject domain.SubjectID) (Profile, error) {
	u, err := s.users.GetByID(ctx, domain.UserID(subject))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return Profile{}, apperr.NotFound("USER_NOT_FOUND", "no account for the authenticated subject")
		}
		return Profile{}, err
	}
	p := Profile{User: u}
	if u.MemberID != nil {
		m, err := s.members.GetByID(ctx, *u.MemberID)
		switch {
		case err == nil:
			p.Member = &m
		case !errors.Is(err, memberrepo.ErrNotFound):
			return Profile{}, err
		}
	}
	return p, nil
}

// Invite starts (or restarts) self-registration for a member and emails them a
// link. A previous pending invitation is superseded.
func (s *Service) Invite(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.getMember(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if strings.TrimSpace(m.Email) == "" {
		return domain.Member{}, apperr.Field("email", "member has no email address")
	}
	if m.Invitation.Status == domain.InvitationAccepted {
		return domain.Member{}, apperr.Conflict("INVITATION_ALREADY_ACCEPTED", "member already has an account")
	}

	token, err := newToken()
	if err != nil {
		return domain.Member{}, err
	}
	now := s.clk.Now().UTC()
	expires := now.Add(s.cfg.InvitationTTL)
	m.Invitation = domain.Invitation{
		Token:     token,
		Status:    domain.InvitationPending,
		SentAt:    &now,
		ExpiresAt: &expires,
	}
	m.UpdatedAt = now
	if err := s.members.Update(ctx, m); err != nil {
		return domain.Member{}, err
	}

	if err := s.mail.Send(ctx, s.invitationMessage(m)); err != nil {
		s.logger().ErrorContext(ctx, "invitation email failed", "member_id", string(m.ID), "err", err)
		if s.Metrics != nil {
			s.Metrics.MailFailed()
		}
		return domain.Member{}, &apperr.Error{
			Status:  http.StatusBadGateway,
			Code:    "MAIL_DELIVERY_FAILED",
			Message: "invitation saved but the email could not be sent",
		}
	}
	return m, nil
}

// InvitationView is what an invitee sees before choosing a password.
type InvitationView struct {
	Member    domain.MemberSummary
	Email     string
	ExpiresAt time.Time
}

func (s *Service) CheckInvitation(ctx context.Context, token string) (InvitationView, error) {
	m, err := s.pendingInvitation(ctx, token)
	if err != nil {
		return InvitationView{}, err
	}
	return InvitationView{Member: m.Summary(), Email: m.Email, ExpiresAt: *m.Invitation.ExpiresAt}, nil
}

// AcceptInvitation creates the member's account and signs them in.
func (s *Service) AcceptInvitation(ctx context.Context, token, password string) (Session, error) {
	if err := checkPassword(password); err != nil {
		return Session{}, err
	}
	m, err := s.pendingInvitation(ctx, token)
	if err != nil {
		return Session{}, err
	}
	email, err := normalizeEmail(m.Email)
	if err != nil {
		return Session{}, err
	}

	memberID := m.ID
	u, err := s.createUser(ctx, email, password, domain.RoleMember, &memberID)
	if err != nil {
		return Session{}, err
	}

	now := s.clk.Now().UTC()
	m.Invitation.Status = domain.InvitationAccepted
	m.Invitation.Token = ""
	m.Invitation.AcceptedAt = &now
	m.UpdatedAt = now
	if err := s.members.Update(ctx, m); err != nil {
		return Session{}, err
	}
	return s.session(u)
}

func (s *Service) RevokeInvitation(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.getMember(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}
	if m.Invitation.Status != domain.InvitationPending {
		return domain.Member{}, apperr.Conflict("NO_PENDING_INVITATION", "member has no pending invitation")
	}
	m.Invitation.Status = domain.InvitationRevoked
	m.Invitation.Token = ""
	m.UpdatedAt = s.clk.Now().UTC()
	if err := s.members.Update(ctx, m); err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

// pendingInvitation loads the member for token. An invitation found past its
// expiry is marked expired before 410 is returned.
func (s *Service) pendingInvitation(ctx context.Context, token string) (domain.Member, error) {
	notFound := apperr.NotFound("INVITATION_NOT_FOUND", "invitation not found")
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Member{}, notFound
	}
	m, err := s.members.GetByInvitationToken(ctx, token)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, notFound
		}
		return domain.Member{}, err
	}

	gone := apperr.Gone("INVITATION_EXPIRED", "invitation has expired")
	switch m.Invitation.Status {
	case domain.InvitationPending:
	case domain.InvitationExpired:
		return domain.Member{}, gone
	default:
		return domain.Member{}, notFound
	}

	now := s.clk.Now().UTC()
	if m.Invitation.ExpiresAt == nil || !now.Before(*m.Invitation.ExpiresAt) {
		m.Invitation.Status = domain.InvitationExpired
		m.UpdatedAt = now
		if err := s.members.Update(ctx, m); err != nil {
			return domain.Member{}, err
		}
		return domain.Member{}, gone
	}
	return m, nil
}

func (s *Service) createUser(ctx context.Context, email, password string, role domain.Role, member *domain.MemberID) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := domain.User{
		ID:           domain.UserID(uuid.NewString()),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		MemberID:     member,
		CreatedAt:    s.clk.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, userrepo.ErrEmailTaken):
			return domain.User{}, apperr.Conflict("EMAIL_ALREADY_IN_USE", "an account already exists for this email")
		case errors.Is(err, userrepo.ErrMemberBound):
			return domain.User{}, apperr.Conflict("INVITATION_ALREADY_ACCEPTED", "member already has an account")
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *Service) session(u domain.User) (Session, error) {
	tok, exp, err := s.tokens.Issue(string(u.ID), string(u.Role))
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

func (s *Service) invitationMessage(m domain.Member) mailer.Message {
	link := s.cfg.FrontendBaseURL + "/invitation/" + m.Invitation.Token
	name := m.FullName()
	expires := m.Invitation.ExpiresAt.Format("02/01/2006")
	return mailer.Message{
		To:      mail.Address{Name: name, Address: m.Email},
		Subject: "Votre invitation BodyForce",
		Text: fmt.Sprintf("Bonjour %s,\n\nVous êtes invité(e) à créer votre compte BodyForce :\n%s\n\nCe lien expire le %s.\n",
			name, link, expires),
		HTML: fmt.Sprintf(`<p>Bonjour %s,</p><p>Vous êtes invité(e) à créer votre compte BodyForce :</p><p><a href="%s">Créer mon compte</a></p><p>Ce lien expire le %s.</p>`,
			html.EscapeString(name), link, expires),
	}
}

func (s *Service) getMember(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, apperr.NotFound("MEMBER_NOT_FOUND", "member not found")
		}
		return domain.Member{}, err
	}
	return m, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func normalizeEmail(email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return "", apperr.Field("email", "required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Field("email", "must be a bare email address")
	}
	return email, nil
}

func checkPassword(p string) error {
	if len([]rune(p)) < MinPasswordLength {
		return apperr.Field("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	// bcrypt ignores everything past 72 bytes.
	if len(p) > 72 {
		return apperr.Field("password", "must be at most 72 bytes")
	}
	return nil
}
