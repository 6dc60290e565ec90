package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neurobet/neurobet/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for ledger documents and the model state. Writes go to the primary
// store and invalidate the cache; reads check Redis first then fall back to
// the primary. Prediction history and events pass through uncached.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetLedger(ctx context.Context, userID string) (*model.UserLedger, error) {
	data, err := s.rdb.Get(ctx, ledgerKey(userID)).Bytes()
	if err == nil {
		var l model.UserLedger
		if json.Unmarshal(data, &l) == nil {
			return &l, nil
		}
	}

	// Cache miss: read from primary.
	l, err := s.primary.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.cacheLedger(ctx, l)
	return l, nil
}

func (s *CachedStore) GetModelState(ctx context.Context) (*model.ModelState, error) {
	data, err := s.rdb.Get(ctx, modelStateKey).Bytes()
	if err == nil {
		var st model.ModelState
		if json.Unmarshal(data, &st) == nil {
			return &st, nil
		}
	}

	st, err := s.primary.GetModelState(ctx)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if data, err := json.Marshal(st); err == nil {
			s.rdb.Set(ctx, modelStateKey, data, s.ttl)
		}
	}
	return st, nil
}

// --- Write-through (write to primary, refresh or invalidate cache) ---

func (s *CachedStore) PutLedger(ctx context.Context, ledger *model.UserLedger) error {
	if err := s.primary.PutLedger(ctx, ledger); err != nil {
		return err
	}
	s.cacheLedger(ctx, ledger)
	return nil
}

func (s *CachedStore) DeleteLedger(ctx context.Context, userID string) error {
	if err := s.primary.DeleteLedger(ctx, userID); err != nil {
		return err
	}
	s.rdb.Del(ctx, ledgerKey(userID))
	return nil
}

func (s *CachedStore) PutModelState(ctx context.Context, st *model.ModelState) error {
	if err := s.primary.PutModelState(ctx, st); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, modelStateKey)
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) AppendPrediction(ctx context.Context, p *model.Prediction) error {
	return s.primary.AppendPrediction(ctx, p)
}

func (s *CachedStore) ListPredictions(ctx context.Context) ([]model.Prediction, error) {
	return s.primary.ListPredictions(ctx)
}

func (s *CachedStore) UpdatePrediction(ctx context.Context, p *model.Prediction) error {
	return s.primary.UpdatePrediction(ctx, p)
}

func (s *CachedStore) AppendEvent(ctx context.Context, e *model.Event) error {
	return s.primary.AppendEvent(ctx, e)
}

func (s *CachedStore) RecentEvents(ctx context.Context, userID string, limit int) ([]model.Event, error) {
	return s.primary.RecentEvents(ctx, userID, limit)
}

func (s *CachedStore) RecentGlobalEvents(ctx context.Context, limit int) ([]model.Event, error) {
	return s.primary.RecentGlobalEvents(ctx, limit)
}

func (s *CachedStore) ClearEvents(ctx context.Context, userID string) error {
	return s.primary.ClearEvents(ctx, userID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheLedger(ctx context.Context, l *model.UserLedger) {
	if data, err := json.Marshal(l); err == nil {
		s.rdb.Set(ctx, ledgerKey(l.UserID), data, s.ttl)
	}
}

func ledgerKey(userID string) string { return fmt.Sprintf("ledger:%s", userID) }

const modelStateKey = "model:state"

var _ Store = (*CachedStore)(nil)
