package paymentrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/bodyforce/admin-api/internal/domain"
	"github.com/bodyforce/admin-api/internal/ports/out/paymentrepo"
)

// Repo is an in-memory implementation of paymentrepo.Repository.
// Member references are not checked. It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.PaymentID]domain.Payment
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.PaymentID]domain.Payment)}
}

func (r *Repo) Create(ctx context.Context, p domain.Payment) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; ok || p.ID == "" {
		return paymentrepo.ErrAlreadyExists
	}
	r.byID[p.ID] = clonePayment(p)
	return nil
}

func (r *Repo) Update(ctx context.Context, p domain.Payment) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return paymentrepo.ErrNotFound
	}
	r.byID[p.ID] = clonePayment(p)
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.PaymentID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return paymentrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) DeleteByMember(ctx context.Context, id domain.MemberID) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for pid, p := range r.byID {
		if p.MemberID == id {
			delete(r.byID, pid)
			n++
		}
	}
	return n, nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PaymentID) (domain.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.Payment{}, paymentrepo.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *Repo) List(ctx context.Context, f paymentrepo.Filter) ([]domain.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Payment, 0)
	for _, p := range r.byID {
		if f.Matches(p) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].EffectiveDate(), out[j].EffectiveDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func clonePayment(p domain.Payment) domain.Payment {
	out := p
	if p.EncaissementPrevu != nil {
		v := *p.EncaissementPrevu
		out.EncaissementPrevu = &v
	}
	return out
}

