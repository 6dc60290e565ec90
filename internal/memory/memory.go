// Package memory records what the bot and its users have been doing:
// per-user command history plus a global stream of system events such as
// evaluation cycles. It is a thin layer over the store that stamps and
// shapes events.
package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/neurobet/neurobet/internal/model"
	"github.com/neurobet/neurobet/internal/store"
)

// DefaultHistoryLimit is how many events the history commands show.
const DefaultHistoryLimit = 10

// Service records and reads bot activity.
type Service struct {
	store  store.Store
	logger *slog.Logger

	now func() time.Time
}

// New creates a memory service.
func New(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordUser appends an event to a user's history.
func (s *Service) RecordUser(ctx context.Context, userID, action string, data map[string]any) {
	s.record(ctx, userID, action, data)
}

// RecordGlobal appends a system-wide event.
func (s *Service) RecordGlobal(ctx context.Context, action string, data map[string]any) {
	s.record(ctx, "", action, data)
}

func (s *Service) record(ctx context.Context, userID, action string, data map[string]any) {
	e := &model.Event{
		UserID:    userID,
		Action:    action,
		Data:      data,
		Timestamp: s.now(),
	}
	// Memory is best effort: a failed write must never break the command
	// that triggered it.
	if err := s.store.AppendEvent(ctx, e); err != nil {
		s.logger.Error("failed to record event",
			"action", action, "user_id", userID, "err", err)
	}
}

// History returns a user's most recent events, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.store.RecentEvents(ctx, userID, limit)
}

// GlobalHistory returns the most recent system events, newest first.
func (s *Service) GlobalHistory(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.store.RecentGlobalEvents(ctx, limit)
}

// ClearUser wipes one user's history.
func (s *Service) ClearUser(ctx context.Context, userID string) error {
	return s.store.ClearEvents(ctx, userID)
}

// ClearAll wipes every event, user and global alike.
func (s *Service) ClearAll(ctx context.Context) error {
	return s.store.ClearEvents(ctx, "*")
}
