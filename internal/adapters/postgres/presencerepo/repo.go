package presencerepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/presencerepo"
)

// Repo is a Postgres implementation of presencerepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p domain.Presence) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(p.ID))
	if err != nil {
		return fmt.Errorf("invalid presence id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO presences (id, badge_id, ts) VALUES ($1, $2, $3)`,
		id, string(p.BadgeID), p.Timestamp.UTC())
	return err
}

func (r *Repo) Delete(ctx context.Context, id domain.PresenceID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return presencerepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM presences WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return presencerepo.ErrNotFound
	}
	return nil
}

func (r *Repo) ListPage(ctx context.Context, f presencerepo.Filter, offset, limit int) ([]domain.Presence, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	var (
		conds []string
		args  []any
	)
	if f.BadgeID != "" {
		args = append(args, string(f.BadgeID))
		conds = append(conds, fmt.Sprintf("badge_id = $%d", len(args)))
	}
	if !f.Range.From.IsZero() {
		args = append(args, f.Range.From.UTC())
		conds = append(conds, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if !f.Range.To.IsZero() {
		args = append(args, f.Range.To.UTC())
		conds = append(conds, fmt.Sprintf("ts < $%d", len(args)))
	}
	q := `SELECT id, badge_id, ts FROM presences`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	q += ` ORDER BY ts, id`
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Presence, 0)
	for rows.Next() {
		var (
			id    uuid.UUID
			badge string
			ts    time.Time
		)
		if err := rows.Scan(&id, &badge, &ts); err != nil {
			return nil, err
		}
		out = append(out, domain.Presence{ID: domain.PresenceID(id.String()), BadgeID: domain.BadgeID(badge), Timestamp: ts.UTC()})
	}
	return out, rows.Err()
}

func (r *Repo) DeleteDuplicates(ctx context.Context) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM presences p
		USING presences q
		WHERE p.badge_id = q.badge_id
		  AND date_trunc('minute', p.ts AT TIME ZONE 'UTC') = date_trunc('minute', q.ts AT TIME ZONE 'UTC')
		  AND (q.ts, q.id) < (p.ts, p.id)
	`)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}
