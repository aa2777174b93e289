package idempotency

import (
	"context"
	"sync"
	"time"

	clockport "github.com/bodyforce/admin-api/internal/ports/out/clock"
	"github.com/bodyforce/admin-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
//
// With a positive TTL, records whose CreatedAt is older than TTL are treated as
// missing and pruned on the next Put.
type Store struct {
	mu sync.RWMutex
	m  map[idempotency.Fingerprint]idempotency.Record

	ttl time.Duration
	clk clockport.Clock
}

func NewStore() *Store {
	return &Store{
		m: make(map[idempotency.Fingerprint]idempotency.Record),
	}
}

// NewStoreWithTTL returns a store that forgets records after ttl as measured by clk.
func NewStoreWithTTL(ttl time.Duration, clk clockport.Clock) *Store {
	s := NewStore()
	s.ttl = ttl
	s.clk = clk
	return s
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok || s.expired(rec) {
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.m {
		if s.expired(v) {
			delete(s.m, k)
		}
	}
	rec.Body = append([]byte(nil), rec.Body...)
	s.m[fp] = rec
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	if s.ttl <= 0 || s.clk == nil {
		return false
	}
	return s.clk.Now().Sub(rec.CreatedAt) > s.ttl
}
