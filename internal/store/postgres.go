package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neurobet/neurobet/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
//
// Ledger documents live one JSONB row per user, so the whole-document
// replace required by the ledger's write path is a single UPDATE. The
// prediction history and activity memory use typed tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema creates the tables used by the store. Safe to call at startup.
func (s *PostgresStore) Schema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS user_ledgers (
			user_id    TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS predictions (
			id           TEXT PRIMARY KEY,
			home_team    TEXT NOT NULL,
			away_team    TEXT NOT NULL,
			pick         TEXT NOT NULL,
			prob_home    DOUBLE PRECISION NOT NULL,
			prob_draw    DOUBLE PRECISION NOT NULL,
			prob_away    DOUBLE PRECISION NOT NULL,
			confidence   DOUBLE PRECISION NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			real_result  TEXT NOT NULL DEFAULT '',
			hit          BOOLEAN,
			evaluated_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS model_state (
			id         INT PRIMARY KEY CHECK (id = 1),
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS events (
			id      BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			action  TEXT NOT NULL,
			data    JSONB,
			ts      TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS events_user_ts ON events (user_id, ts DESC);`)
	if err != nil {
		return unavailable("create schema", err)
	}
	return nil
}

func (s *PostgresStore) GetLedger(ctx context.Context, userID string) (*model.UserLedger, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM user_ledgers WHERE user_id = $1`, userID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return &model.UserLedger{UserID: userID}, nil
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get ledger %s", userID), err)
	}

	var ledger model.UserLedger
	if err := json.Unmarshal(doc, &ledger); err != nil {
		// Corrupt document reads as an empty collection.
		return &model.UserLedger{UserID: userID}, nil
	}
	ledger.UserID = userID
	return &ledger, nil
}

func (s *PostgresStore) PutLedger(ctx context.Context, ledger *model.UserLedger) error {
	doc, err := json.Marshal(ledger)
	if err != nil {
		return unavailable(fmt.Sprintf("encode ledger %s", ledger.UserID), err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_ledgers (user_id, doc, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET doc = $2, updated_at = now()`,
		ledger.UserID, doc)
	if err != nil {
		return unavailable(fmt.Sprintf("put ledger %s", ledger.UserID), err)
	}
	return nil
}

func (s *PostgresStore) DeleteLedger(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_ledgers WHERE user_id = $1`, userID)
	if err != nil {
		return unavailable(fmt.Sprintf("delete ledger %s", userID), err)
	}
	return nil
}

func (s *PostgresStore) AppendPrediction(ctx context.Context, p *model.Prediction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO predictions (id, home_team, away_team, pick,
		                          prob_home, prob_draw, prob_away, confidence,
		                          created_at, real_result, hit, evaluated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.HomeTeam, p.AwayTeam, p.Pick,
		p.ProbHome, p.ProbDraw, p.ProbAway, p.Confidence,
		p.CreatedAt, p.RealResult, p.Hit, p.EvaluatedAt)
	if err != nil {
		return unavailable("append prediction", err)
	}
	return nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context) ([]model.Prediction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, home_team, away_team, pick,
		        prob_home, prob_draw, prob_away, confidence,
		        created_at, real_result, hit, evaluated_at
		 FROM predictions ORDER BY created_at`)
	if err != nil {
		return nil, unavailable("list predictions", err)
	}
	defer rows.Close()

	var out []model.Prediction
	for rows.Next() {
		var p model.Prediction
		if err := rows.Scan(&p.ID, &p.HomeTeam, &p.AwayTeam, &p.Pick,
			&p.ProbHome, &p.ProbDraw, &p.ProbAway, &p.Confidence,
			&p.CreatedAt, &p.RealResult, &p.Hit, &p.EvaluatedAt); err != nil {
			return nil, unavailable("scan prediction", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdatePrediction(ctx context.Context, p *model.Prediction) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE predictions
		 SET real_result = $2, hit = $3, evaluated_at = $4
		 WHERE id = $1`,
		p.ID, p.RealResult, p.Hit, p.EvaluatedAt)
	if err != nil {
		return unavailable("update prediction", err)
	}
	return nil
}

func (s *PostgresStore) GetModelState(ctx context.Context) (*model.ModelState, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM model_state WHERE id = 1`).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get model state", err)
	}

	var st model.ModelState
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, nil
	}
	return &st, nil
}

func (s *PostgresStore) PutModelState(ctx context.Context, st *model.ModelState) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return unavailable("encode model state", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO model_state (id, doc, updated_at) VALUES (1, $1, now())
		 ON CONFLICT (id) DO UPDATE SET doc = $1, updated_at = now()`, doc)
	if err != nil {
		return unavailable("put model state", err)
	}
	return nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *model.Event) error {
	var data []byte
	if e.Data != nil {
		data, _ = json.Marshal(e.Data)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (user_id, action, data, ts) VALUES ($1, $2, $3, $4)`,
		e.UserID, e.Action, data, e.Timestamp)
	if err != nil {
		return unavailable("append event", err)
	}
	return nil
}

func (s *PostgresStore) RecentEvents(ctx context.Context, userID string, limit int) ([]model.Event, error) {
	return s.queryEvents(ctx, userID, limit)
}

func (s *PostgresStore) RecentGlobalEvents(ctx context.Context, limit int) ([]model.Event, error) {
	return s.queryEvents(ctx, "", limit)
}

func (s *PostgresStore) queryEvents(ctx context.Context, userID string, limit int) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, action, data, ts FROM events
		 WHERE user_id = $1 ORDER BY ts DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, unavailable("query events", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var e model.Event
		var data []byte
		if err := rows.Scan(&e.UserID, &e.Action, &data, &e.Timestamp); err != nil {
			return nil, unavailable("scan event", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &e.Data)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ClearEvents(ctx context.Context, userID string) error {
	var err error
	if userID == "*" {
		_, err = s.pool.Exec(ctx, `DELETE FROM events`)
	} else {
		_, err = s.pool.Exec(ctx, `DELETE FROM events WHERE user_id = $1`, userID)
	}
	if err != nil {
		return unavailable("clear events", err)
	}
	return nil
}

// unavailable tags a backend failure so callers can match ErrUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %s", op, ErrUnavailable, err)
}

var _ Store = (*PostgresStore)(nil)
