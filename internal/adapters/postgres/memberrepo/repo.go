package memberrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/bodyforce/admin-api/internal/adapters/postgres"
	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
)

// Repo is a Postgres implementation of memberrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

type fileJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Path string `json:"path,omitempty"`
}

const memberColumns = `
	external_id, name, first_name, birthdate, gender, address, phone, mobile, email,
	subscription_type, start_date, end_date, COALESCE(badge_id, ''), files, photo, etudiant,
	COALESCE(invitation_token, ''), invitation_status, invitation_sent_at, invitation_expires_at,
	invitation_accepted_at, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, m domain.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO members (
			external_id, name, first_name, birthdate, gender, address, phone, mobile, email,
			subscription_type, start_date, end_date, badge_id, files, photo, etudiant,
			invitation_token, invitation_status, invitation_sent_at, invitation_expires_at,
			invitation_accepted_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
	`,
		id,
		m.Name,
		m.FirstName,
		m.Birthdate,
		string(m.Gender),
		m.Address,
		m.Phone,
		m.Mobile,
		m.Email,
		string(m.SubscriptionType),
		m.StartDate,
		m.EndDate,
		nullIfEmpty(string(m.BadgeID)),
		toFilesJSON(m.Files),
		m.Photo,
		m.Etudiant,
		nullIfEmpty(m.Invitation.Token),
		invitationStatus(m.Invitation.Status),
		utcPtr(m.Invitation.SentAt),
		utcPtr(m.Invitation.ExpiresAt),
		utcPtr(m.Invitation.AcceptedAt),
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	)
	return mapWriteError(err)
}

func (r *Repo) Update(ctx context.Context, m domain.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return memberrepo.ErrNotFound
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE members
		SET name = $2,
		    first_name = $3,
		    birthdate = $4,
		    gender = $5,
		    address = $6,
		    phone = $7,
		    mobile = $8,
		    email = $9,
		    subscription_type = $10,
		    start_date = $11,
		    end_date = $12,
		    badge_id = $13,
		    files = $14,
		    photo = $15,
		    etudiant = $16,
		    invitation_token = $17,
		    invitation_status = $18,
		    invitation_sent_at = $19,
		    invitation_expires_at = $20,
		    invitation_accepted_at = $21,
		    updated_at = $22
		WHERE external_id = $1
	`,
		id,
		m.Name,
		m.FirstName,
		m.Birthdate,
		string(m.Gender),
		m.Address,
		m.Phone,
		m.Mobile,
		m.Email,
		string(m.SubscriptionType),
		m.StartDate,
		m.EndDate,
		nullIfEmpty(string(m.BadgeID)),
		toFilesJSON(m.Files),
		m.Photo,
		m.Etudiant,
		nullIfEmpty(m.Invitation.Token),
		invitationStatus(m.Invitation.Status),
		utcPtr(m.Invitation.SentAt),
		utcPtr(m.Invitation.ExpiresAt),
		utcPtr(m.Invitation.AcceptedAt),
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapWriteError(err)
	}
	if ct.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.MemberID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return memberrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM members WHERE external_id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	if r.pool == nil {
		return domain.Member{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE external_id = $1`, uid))
}

func (r *Repo) GetByBadge(ctx context.Context, badge domain.BadgeID) (domain.Member, error) {
	if r.pool == nil {
		return domain.Member{}, errors.New("nil postgres pool")
	}
	if badge == "" {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE badge_id = $1`, string(badge)))
}

func (r *Repo) GetByInvitationToken(ctx context.Context, token string) (domain.Member, error) {
	if r.pool == nil {
		return domain.Member{}, errors.New("nil postgres pool")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	return scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE invitation_token = $1`, token))
}

func (r *Repo) List(ctx context.Context, f memberrepo.Filter) (memberrepo.Page, error) {
	if r.pool == nil {
		return memberrepo.Page{}, errors.New("nil postgres pool")
	}
	where, args := buildWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM members`+where, args...).Scan(&total); err != nil {
		return memberrepo.Page{}, err
	}

	q := `SELECT ` + memberColumns + ` FROM members` + where +
		` ORDER BY lower(name), lower(first_name), external_id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return memberrepo.Page{}, err
	}
	defer rows.Close()

	out := make([]domain.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return memberrepo.Page{}, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return memberrepo.Page{}, err
	}
	return memberrepo.Page{Members: out, Total: total}, nil
}

// buildWhere renders f as a WHERE clause. It mirrors memberrepo.Filter.Matches.
func buildWhere(f memberrepo.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	const endBeforeNow = `(end_date::timestamp AT TIME ZONE 'UTC') < `
	switch f.Status {
	case memberrepo.StatusActive:
		conds = append(conds, `(end_date IS NOT NULL AND NOT `+endBeforeNow+arg(f.Now.UTC())+`)`)
	case memberrepo.StatusExpired:
		conds = append(conds, `(end_date IS NULL OR `+endBeforeNow+arg(f.Now.UTC())+`)`)
	}
	if f.Etudiant != nil {
		conds = append(conds, `etudiant = `+arg(*f.Etudiant))
	}
	if f.SubscriptionType != "" {
		conds = append(conds, `subscription_type = `+arg(string(f.SubscriptionType)))
	}
	for _, tok := range memberrepo.Tokens(f.Query) {
		p := arg("%" + escapeLike(tok) + "%")
		conds = append(conds, fmt.Sprintf(
			`(lower(name) LIKE %[1]s OR lower(first_name) LIKE %[1]s OR lower(email) LIKE %[1]s OR lower(COALESCE(badge_id, '')) LIKE %[1]s)`, p))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanMember(row interface{ Scan(dest ...any) error }) (domain.Member, error) {
	var (
		id         uuid.UUID
		m          domain.Member
		gender     string
		subType    string
		badge      string
		files      []fileJSON
		invStatus  string
		createdAt  time.Time
		updatedAt  time.Time
		birthdate  *time.Time
		startDate  *time.Time
		endDate    *time.Time
		sentAt     *time.Time
		expiresAt  *time.Time
		acceptedAt *time.Time
		invToken   string
	)
	if err := row.Scan(
		&id,
		&m.Name,
		&m.FirstName,
		&birthdate,
		&gender,
		&m.Address,
		&m.Phone,
		&m.Mobile,
		&m.Email,
		&subType,
		&startDate,
		&endDate,
		&badge,
		&files,
		&m.Photo,
		&m.Etudiant,
		&invToken,
		&invStatus,
		&sentAt,
		&expiresAt,
		&acceptedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Member{}, memberrepo.ErrNotFound
		}
		return domain.Member{}, err
	}

	m.ID = domain.MemberID(id.String())
	m.Gender = domain.Gender(gender)
	m.SubscriptionType = domain.SubscriptionType(subType)
	m.BadgeID = domain.BadgeID(badge)
	m.Birthdate = dateUTC(birthdate)
	m.StartDate = dateUTC(startDate)
	m.EndDate = dateUTC(endDate)
	m.Invitation = domain.Invitation{
		Token:      invToken,
		Status:     domain.InvitationStatus(invStatus),
		SentAt:     utcPtr(sentAt),
		ExpiresAt:  utcPtr(expiresAt),
		AcceptedAt: utcPtr(acceptedAt),
	}
	if len(files) > 0 {
		m.Files = make([]domain.MemberFile, 0, len(files))
		for _, f := range files {
			m.Files = append(m.Files, domain.MemberFile{Name: f.Name, URL: f.URL, Path: f.Path})
		}
	}
	m.CreatedAt = createdAt.UTC()
	m.UpdatedAt = updatedAt.UTC()
	return m, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
		switch pe.ConstraintName {
		case "members_external_id_unique":
			return memberrepo.ErrAlreadyExists
		case "members_badge_unique":
			return memberrepo.ErrBadgeTaken
		}
	}
	return err
}

func toFilesJSON(files []domain.MemberFile) []fileJSON {
	out := make([]fileJSON, 0, len(files))
	for _, f := range files {
		out = append(out, fileJSON{Name: f.Name, URL: f.URL, Path: f.Path})
	}
	return out
}

func invitationStatus(s domain.InvitationStatus) string {
	if s == "" {
		return string(domain.InvitationNone)
	}
	return string(s)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// dateUTC pins a DATE column to midnight UTC regardless of session time zone.
func dateUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, mo, d := t.Date()
	v := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return &v
}
