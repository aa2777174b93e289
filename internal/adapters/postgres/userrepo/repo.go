package userrepo

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
	"github.com/bodyforce/admin-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const userSelect = `
	SELECT u.id, u.email, u.password_hash, u.role, m.external_id, u.created_at
	FROM users u
	LEFT JOIN members m ON m.id = u.member_id`

func (r *Repo) Create(ctx context.Context, u domain.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var memberID *int64
		if u.MemberID != nil {
			ext, err := uuid.Parse(string(*u.MemberID))
			if err != nil {
				return fmt.Errorf("invalid member id: %w", err)
			}
			var internal int64
			if err := tx.QueryRow(ctx, `SELECT id FROM members WHERE external_id = $1`, ext).Scan(&internal); err != nil {
				return fmt.Errorf("resolve member: %w", err)
			}
			memberID = &internal
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, role, member_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			id,
			strings.TrimSpace(u.Email),
			u.PasswordHash,
			string(u.Role),
			memberID,
			u.CreatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				switch pe.ConstraintName {
				case "users_email_unique":
					return userrepo.ErrEmailTaken
				case "users_member_unique":
					return userrepo.ErrMemberBound
				}
			}
			return err
		}
		return nil
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.User{}, userrepo.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1`, uid))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, errors.New("nil postgres pool")
	}
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE lower(u.email) = lower($1)`, strings.TrimSpace(email)))
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		id        uuid.UUID
		u         domain.User
		role      string
		memberID  *uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &u.Email, &u.PasswordHash, &role, &memberID, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, userrepo.ErrNotFound
		}
		return domain.User{}, err
	}
	u.ID = domain.UserID(id.String())
	u.Role = domain.Role(role)
	if memberID != nil {
		mid := domain.MemberID(memberID.String())
		u.MemberID = &mid
	}
	u.CreatedAt = createdAt.UTC()
	return u, nil
}
