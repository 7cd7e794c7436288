package repository

import (
	"context"
	"sync"
)

// MemoryStore keeps results in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	results []MatchResult
	seen    map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

// Record stores result.
func (s *MemoryStore) Record(ctx context.Context, result MatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := result.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[result.MatchID]; ok {
		return ErrDuplicate
	}
	s.seen[result.MatchID] = struct{}{}
	s.results = append(s.results, result)
	return nil
}

// Recent returns up to limit results, newest first.
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.results) {
		limit = len(s.results)
	}
	out := make([]MatchResult, 0, limit)
	for i := len(s.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.results[i])
	}
	return out, nil
}

// Standing tallies name's wins and losses.
func (s *MemoryStore) Standing(ctx context.Context, name string) (Standing, error) {
	if err := ctx.Err(); err != nil {
		return Standing{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Standing{Name: name}
	for _, r := range s.results {
		if r.WinnerName == name {
			st.Wins++
		}
		if r.LoserName == name {
			st.Losses++
		}
	}
	return st, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ ResultStore = (*MemoryStore)(nil)
