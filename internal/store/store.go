// Package store defines the persistence interface for the bot.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache for ledger documents), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/neurobet/neurobet/internal/model"
)

// ErrUnavailable wraps backend failures: an unreadable or unwritable
// backing store. A missing ledger document is NOT an error — it reads as
// an empty collection — but a write failure after computation must surface
// this rather than silently dropping the update.
var ErrUnavailable = errors.New("store: backing store unavailable")

// Store is the persistence interface.
//
// Ledger documents are replaced whole: each write persists the user's
// entire entry collection in one atomic operation. Serializing writers per
// user is the caller's job (the ledger service holds a per-user lock).
type Store interface {
	// --- Per-user bet ledgers ---

	// GetLedger returns the user's ledger. A missing document yields an
	// empty ledger, never an error.
	GetLedger(ctx context.Context, userID string) (*model.UserLedger, error)

	// PutLedger atomically replaces the user's whole ledger document.
	PutLedger(ctx context.Context, ledger *model.UserLedger) error

	// DeleteLedger removes the user's entire collection.
	DeleteLedger(ctx context.Context, userID string) error

	// --- Prediction history ---

	// AppendPrediction appends a new prediction record.
	AppendPrediction(ctx context.Context, p *model.Prediction) error

	// ListPredictions returns all predictions in creation order.
	ListPredictions(ctx context.Context) ([]model.Prediction, error)

	// UpdatePrediction overwrites a prediction by ID (used when the
	// evaluation cycle fills in the real result).
	UpdatePrediction(ctx context.Context, p *model.Prediction) error

	// --- Self-learning model state ---

	// GetModelState returns the persisted model state, or nil when the
	// model has never been initialized.
	GetModelState(ctx context.Context) (*model.ModelState, error)

	// PutModelState replaces the model state.
	PutModelState(ctx context.Context, st *model.ModelState) error

	// --- Activity memory ---

	// AppendEvent appends an activity event. Events with an empty UserID
	// belong to the global memory.
	AppendEvent(ctx context.Context, e *model.Event) error

	// RecentEvents returns the last limit events for a user,
	// most-recent-first.
	RecentEvents(ctx context.Context, userID string, limit int) ([]model.Event, error)

	// RecentGlobalEvents returns the last limit global events,
	// most-recent-first.
	RecentGlobalEvents(ctx context.Context, limit int) ([]model.Event, error)

	// ClearEvents removes events. An empty userID clears the global
	// memory; "*" clears everything.
	ClearEvents(ctx context.Context, userID string) error
}
