// Package memstore is an in-process player store for local runs and tests.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwent-leaderboard/internal/domain"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock sets the clock used to stamp updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store keeps player rows in a map keyed by id.
//
// Every write stamps updated_at, mirroring the postgres store. Reads copy
// rows out, so callers never share memory with the store.
type Store struct {
	mu   sync.RWMutex
	rows map[string]domain.PlayerRecord
	now  func() time.Time
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		rows: make(map[string]domain.PlayerRecord),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryPlayers returns the rows matching the query in ranking order.
func (s *Store) QueryPlayers(ctx context.Context, q domain.PlayerQuery) ([]domain.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StoreUnavailable("querying players", err)
	}

	s.mu.RLock()
	out := make([]domain.PlayerRecord, 0, len(s.rows))
	for _, p := range s.rows {
		if q.Matches(&p) {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	domain.SortPlayers(out, q.Ordering)
	return out, nil
}

// UpsertPlayer inserts the record or replaces the row with the same id.
func (s *Store) UpsertPlayer(ctx context.Context, p domain.PlayerRecord) (domain.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PlayerRecord{}, domain.StoreUnavailable("upserting player", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.now()
	s.rows[p.ID] = p
	return p, nil
}

// InsertPlayer inserts a new row; an existing id is rejected.
func (s *Store) InsertPlayer(ctx context.Context, p domain.PlayerRecord) (domain.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PlayerRecord{}, domain.StoreUnavailable("inserting player", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[p.ID]; ok {
		return domain.PlayerRecord{}, fmt.Errorf("inserting player %q: %w", p.ID, domain.ErrPlayerExists)
	}
	p.UpdatedAt = s.now()
	s.rows[p.ID] = p
	return p, nil
}

// UpdatePlayer replaces an existing row.
func (s *Store) UpdatePlayer(ctx context.Context, p domain.PlayerRecord) (domain.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PlayerRecord{}, domain.StoreUnavailable("updating player", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[p.ID]; !ok {
		return domain.PlayerRecord{}, &domain.NotFoundError{ID: p.ID}
	}
	p.UpdatedAt = s.now()
	s.rows[p.ID] = p
	return p, nil
}

// DeletePlayer removes a row and returns it.
func (s *Store) DeletePlayer(ctx context.Context, id string) (domain.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PlayerRecord{}, domain.StoreUnavailable("deleting player", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return domain.PlayerRecord{}, &domain.NotFoundError{ID: id}
	}
	delete(s.rows, id)
	return p, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
