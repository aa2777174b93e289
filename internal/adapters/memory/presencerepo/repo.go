package presencerepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/presencerepo"
)

// Repo is an in-memory implementation of presencerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.PresenceID]domain.Presence
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.PresenceID]domain.Presence)}
}

func (r *Repo) Create(ctx context.Context, p domain.Presence) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.PresenceID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return presencerepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) ListPage(ctx context.Context, f presencerepo.Filter, offset, limit int) ([]domain.Presence, error) {
	_ = ctx
	r.mu.RLock()
	all := make([]domain.Presence, 0, len(r.byID))
	for _, p := range r.byID {
		if f.BadgeID != "" && p.BadgeID != f.BadgeID {
			continue
		}
		if !f.Range.Contains(p.Timestamp) {
			continue
		}
		all = append(all, p)
	}
	r.mu.RUnlock()

	sortPresences(all)
	if offset >= len(all) {
		return []domain.Presence{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *Repo) DeleteDuplicates(ctx context.Context) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]domain.Presence, 0, len(r.byID))
	for _, p := range r.byID {
		all = append(all, p)
	}
	sortPresences(all)

	type slot struct {
		badge  domain.BadgeID
		minute time.Time
	}
	seen := make(map[slot]struct{}, len(all))
	removed := 0
	for _, p := range all {
		k := slot{badge: p.BadgeID, minute: p.Timestamp.UTC().Truncate(time.Minute)}
		if _, dup := seen[k]; dup {
			delete(r.byID, p.ID)
			removed++
			continue
		}
		seen[k] = struct{}{}
	}
	return removed, nil
}

func sortPresences(ps []domain.Presence) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].Timestamp.Equal(ps[j].Timestamp) {
			return ps[i].Timestamp.Before(ps[j].Timestamp)
		}
		return ps[i].ID < ps[j].ID
	})
}
