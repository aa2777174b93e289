package userrepo

import (
	"context"
	"sync"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID     map[domain.UserID]domain.User
	idByMail map[string]domain.UserID
}

func NewRepo() *Repo {
	return &Repo{
		byID:     make(map[domain.UserID]domain.User),
		idByMail: make(map[string]domain.UserID),
	}
}

func (r *Repo) Create(ctx context.Context, u domain.User) error {
	_ = ctx
	key := domain.NormalizeEmail(u.Email)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.idByMail[key]; ok {
		return userrepo.ErrEmailTaken
	}
	if u.MemberID != nil {
		for _, existing := range r.byID {
			if existing.MemberID != nil && *existing.MemberID == *u.MemberID {
				return userrepo.ErrMemberBound
			}
		}
	}
	r.byID[u.ID] = cloneUser(u)
	r.idByMail[key] = u.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByMail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, userrepo.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func cloneUser(u domain.User) domain.User {
	out := u
	out.PasswordHash = append([]byte(nil), u.PasswordHash...)
	if u.MemberID != nil {
		v := *u.MemberID
		out.MemberID = &v
	}
	return out
}
