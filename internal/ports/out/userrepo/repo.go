package userrepo

import (
	"context"
	"errors"

	"github.com/bodyforce/admin-api/internal/domain"
)

var (
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken indicates an account already exists for the email (case-insensitive).
	ErrEmailTaken = errors.New("email already registered")
	// ErrMemberBound indicates the member already has an account.
	ErrMemberBound = errors.New("member already has an account")
)

type Repository interface {
	Create(ctx context.Context, u domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Count(ctx context.Context) (int, error)
}
