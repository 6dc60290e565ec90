package store

import (
	"context"
	"sync"

	"github.com/neurobet/neurobet/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu          sync.RWMutex
	ledgers     map[string]*model.UserLedger
	predictions []model.Prediction
	modelState  *model.ModelState
	events      []model.Event
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledgers: make(map[string]*model.UserLedger),
	}
}

func (s *MemoryStore) GetLedger(_ context.Context, userID string) (*model.UserLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[userID]
	if !ok {
		return &model.UserLedger{UserID: userID}, nil
	}
	return copyLedger(l), nil
}

func (s *MemoryStore) PutLedger(_ context.Context, ledger *model.UserLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledgers[ledger.UserID] = copyLedger(ledger)
	return nil
}

func (s *MemoryStore) DeleteLedger(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ledgers, userID)
	return nil
}

func (s *MemoryStore) AppendPrediction(_ context.Context, p *model.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.predictions = append(s.predictions, *p)
	return nil
}

func (s *MemoryStore) ListPredictions(_ context.Context) ([]model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Prediction, len(s.predictions))
	copy(out, s.predictions)
	return out, nil
}

func (s *MemoryStore) UpdatePrediction(_ context.Context, p *model.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.predictions {
		if s.predictions[i].ID == p.ID {
			s.predictions[i] = *p
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) GetModelState(_ context.Context) (*model.ModelState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.modelState == nil {
		return nil, nil
	}
	st := *s.modelState
	st.PrecisionHistory = append([]model.PrecisionPoint(nil), s.modelState.PrecisionHistory...)
	return &st, nil
}

func (s *MemoryStore) PutModelState(_ context.Context, st *model.ModelState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *st
	cp.PrecisionHistory = append([]model.PrecisionPoint(nil), st.PrecisionHistory...)
	s.modelState = &cp
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, *e)
	return nil
}

func (s *MemoryStore) RecentEvents(_ context.Context, userID string, limit int) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lastMatching(s.events, limit, func(e *model.Event) bool {
		return e.UserID == userID
	}), nil
}

func (s *MemoryStore) RecentGlobalEvents(_ context.Context, limit int) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lastMatching(s.events, limit, func(e *model.Event) bool {
		return e.UserID == ""
	}), nil
}

func (s *MemoryStore) ClearEvents(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == "*" {
		s.events = nil
		return nil
	}
	kept := s.events[:0]
	for _, e := range s.events {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}

// lastMatching returns up to limit matching events, most-recent-first.
func lastMatching(events []model.Event, limit int, match func(*model.Event) bool) []model.Event {
	var out []model.Event
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		if match(&events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}

// copyLedger deep-copies a ledger to avoid external mutation.
func copyLedger(l *model.UserLedger) *model.UserLedger {
	cp := &model.UserLedger{UserID: l.UserID}
	cp.Entries = make([]model.Entry, len(l.Entries))
	for i, e := range l.Entries {
		ne := model.Entry{Kind: e.Kind}
		if e.Config != nil {
			c := *e.Config
			ne.Config = &c
		}
		if e.Bet != nil {
			b := *e.Bet
			b.Selections = append([]model.Selection(nil), e.Bet.Selections...)
			ne.Bet = &b
		}
		cp.Entries[i] = ne
	}
	return cp
}
