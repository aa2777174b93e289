package paymentrepo

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
	"github.com/bodyforce/admin-api/internal/ports/out/paymentrepo"
)

// Repo is a Postgres implementation of paymentrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const paymentSelect = `
	SELECT p.id, m.external_id, p.amount::float8, p.is_paid, p.encaissement_prevu, p.method, p.comment, p.created_at, p.updated_at
	FROM payments p
	JOIN members m ON m.id = p.member_id`

// effectiveDate mirrors domain.Payment.EffectiveDate.
const effectiveDate = `COALESCE(p.encaissement_prevu::timestamp AT TIME ZONE 'UTC', p.created_at)`

func (r *Repo) Create(ctx context.Context, p domain.Payment) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid payment id: %w", err)
	}
	memberID, err := uuid.Parse(string(p.MemberID))
	if err != nil {
		return paymentrepo.ErrUnknownMember
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var internalID int64
		if err := tx.QueryRow(ctx, `SELECT id FROM members WHERE external_id = $1`, memberID).Scan(&internalID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return paymentrepo.ErrUnknownMember
			}
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO payments (id, member_id, amount, is_paid, encaissement_prevu, method, comment, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			id,
			internalID,
			p.Amount,
			p.IsPaid,
			p.EncaissementPrevu,
			string(p.Method),
			p.Comment,
			p.CreatedAt.UTC(),
			p.UpdatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				return paymentrepo.ErrAlreadyExists
			}
			return err
		}
		return nil
	})
}

func (r *Repo) Update(ctx context.Context, p domain.Payment) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return paymentrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE payments
		SET amount = $2,
		    is_paid = $3,
		    encaissement_prevu = $4,
		    method = $5,
		    comment = $6,
		    updated_at = $7
		WHERE id = $1
	`,
		id,
		p.Amount,
		p.IsPaid,
		p.EncaissementPrevu,
		string(p.Method),
		p.Comment,
		p.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return paymentrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.PaymentID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return paymentrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return paymentrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteByMember(ctx context.Context, id domain.MemberID) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(id))
	if err != nil {
		return 0, nil
	}
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM payments
		WHERE member_id = (SELECT id FROM members WHERE external_id = $1)`, mid)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PaymentID) (domain.Payment, error) {
	if r.pool == nil {
		return domain.Payment{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Payment{}, paymentrepo.ErrNotFound
	}
	return scanPayment(r.pool.QueryRow(ctx, paymentSelect+` WHERE p.id = $1`, uid))
}

func (r *Repo) List(ctx context.Context, f paymentrepo.Filter) ([]domain.Payment, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.MemberID != "" {
		mid, err := uuid.Parse(string(f.MemberID))
		if err != nil {
			return []domain.Payment{}, nil
		}
		conds = append(conds, `m.external_id = `+arg(mid))
	}
	if f.Paid != nil {
		conds = append(conds, `p.is_paid = `+arg(*f.Paid))
	}
	if f.DueBefore != nil {
		conds = append(conds, `(p.encaissement_prevu::timestamp AT TIME ZONE 'UTC') < `+arg(f.DueBefore.UTC()))
	}
	if !f.Range.From.IsZero() {
		conds = append(conds, effectiveDate+` >= `+arg(f.Range.From.UTC()))
	}
	if !f.Range.To.IsZero() {
		conds = append(conds, effectiveDate+` < `+arg(f.Range.To.UTC()))
	}

	q := paymentSelect
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY ` + effectiveDate + ` DESC, p.id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row interface{ Scan(dest ...any) error }) (domain.Payment, error) {
	var (
		id        uuid.UUID
		memberID  uuid.UUID
		p         domain.Payment
		method    string
		due       *time.Time
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &memberID, &p.Amount, &p.IsPaid, &due, &method, &p.Comment, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, paymentrepo.ErrNotFound
		}
		return domain.Payment{}, err
	}
	p.ID = domain.PaymentID(id.String())
	p.MemberID = domain.MemberID(memberID.String())
	p.Method = domain.PaymentMethod(method)
	if due != nil {
		y, m, d := due.Date()
		v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		p.EncaissementPrevu = &v
	}
	p.CreatedAt = createdAt.UTC()
	p.UpdatedAt = updatedAt.UTC()
	return p, nil
}
