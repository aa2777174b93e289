package memberrepo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.MemberID]domain.Member
	idByBadge map[domain.BadgeID]domain.MemberID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.MemberID]domain.Member),
		idByBadge: make(map[domain.BadgeID]domain.MemberID),
	}
}

func (r *Repo) Create(ctx context.Context, m domain.Member) error {
	_ = ctx
	if m.ID == "" {
		return memberrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; ok {
		return memberrepo.ErrAlreadyExists
	}
	if m.BadgeID != "" {
		if _, ok := r.idByBadge[m.BadgeID]; ok {
			return memberrepo.ErrBadgeTaken
		}
		r.idByBadge[m.BadgeID] = m.ID
	}
	r.byID[m.ID] = cloneMember(m)
	return nil
}

func (r *Repo) Update(ctx context.Context, m domain.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[m.ID]
	if !ok {
		return memberrepo.ErrNotFound
	}
	if m.BadgeID != existing.BadgeID {
		if m.BadgeID != "" {
			if holder, ok := r.idByBadge[m.BadgeID]; ok && holder != m.ID {
				return memberrepo.ErrBadgeTaken
			}
			r.idByBadge[m.BadgeID] = m.ID
		}
		if existing.BadgeID != "" {
			delete(r.idByBadge, existing.BadgeID)
		}
	}
	r.byID[m.ID] = cloneMember(m)
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.MemberID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return memberrepo.ErrNotFound
	}
	if m.BadgeID != "" {
		delete(r.idByBadge, m.BadgeID)
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(m), nil
}

func (r *Repo) GetByBadge(ctx context.Context, badge domain.BadgeID) (domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByBadge[badge]
	if !ok || badge == "" {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(r.byID[id]), nil
}

func (r *Repo) GetByInvitationToken(ctx context.Context, token string) (domain.Member, error) {
	_ = ctx
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.byID {
		if m.Invitation.Token == token {
			return cloneMember(m), nil
		}
	}
	return domain.Member{}, memberrepo.ErrNotFound
}

func (r *Repo) List(ctx context.Context, f memberrepo.Filter) (memberrepo.Page, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Member, 0, len(r.byID))
	for _, m := range r.byID {
		if f.Matches(m) {
			out = append(out, cloneMember(m))
		}
	}
	memberrepo.SortMembers(out)
	return memberrepo.Page{Members: f.Paginate(out), Total: len(out)}, nil
}

func cloneMember(m domain.Member) domain.Member {
	out := m
	out.Birthdate = cloneTimePtr(m.Birthdate)
	out.StartDate = cloneTimePtr(m.StartDate)
	out.EndDate = cloneTimePtr(m.EndDate)
	out.Invitation.SentAt = cloneTimePtr(m.Invitation.SentAt)
	out.Invitation.ExpiresAt = cloneTimePtr(m.Invitation.ExpiresAt)
	out.Invitation.AcceptedAt = cloneTimePtr(m.Invitation.AcceptedAt)
	if m.Files != nil {
		out.Files = append([]domain.MemberFile(nil), m.Files...)
	}
	return out
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
