// Package memory implements store.Store with an in-memory map.
//
// Request records live only as long as the daemon: the posting surface and
// the chat transport hold the durable copies, and the archive scheduler can
// export the board for audit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/store"
)

// Store implements store.Store backed by a mutex-guarded map.
type Store struct {
	mu       sync.RWMutex
	requests map[string]*model.Request
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{requests: make(map[string]*model.Request)}
}

func (s *Store) CreateRequest(_ context.Context, req *model.Request) error {
	if err := model.ValidateRequest(req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return fmt.Errorf("request %s already exists", req.ID)
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *Store) GetRequest(_ context.Context, id string) (*model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return req.Clone(), nil
}

func (s *Store) ListRequests(_ context.Context, filter model.RequestFilter) ([]*model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Request
	for _, req := range s.requests {
		if filter.Matches(req) {
			out = append(out, req.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) UpdateRequest(_ context.Context, req *model.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.requests[req.ID]
	if !ok {
		return store.ErrNotFound
	}
	if existing.Status == model.StatusClosed {
		return store.ErrClosed
	}
	if err := model.ValidateRequest(req); err != nil {
		return err
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *Store) CloseRequest(_ context.Context, id, reason string, now time.Time) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if existing.Status == model.StatusClosed {
		return existing.Clone(), nil
	}

	closed := existing.Clone()
	closed.Status = model.StatusClosed
	closedAt := now.UTC()
	closed.ClosedAt = &closedAt
	closed.ClosedReason = reason
	closed.AwaitingLiveness = false
	s.requests[id] = closed

	return closed.Clone(), nil
}

// Close is a no-op; the store holds no external resources.
func (s *Store) Close() error {
	return nil
}
