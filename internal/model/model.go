// Package model defines the core domain types shared across the bot.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the settlement state of a bet.
type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
	OutcomePush    Outcome = "push"
	OutcomePending Outcome = "pending"
)

// Valid reports whether o is one of the four recognized outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWon, OutcomeLost, OutcomePush, OutcomePending:
		return true
	}
	return false
}

// OddsFormat names a quotation convention for odds.
type OddsFormat string

const (
	FormatDecimal  OddsFormat = "decimal"
	FormatAmerican OddsFormat = "american"
)

// Valid reports whether f is a recognized odds format.
func (f OddsFormat) Valid() bool {
	return f == FormatDecimal || f == FormatAmerican
}

// UserConfig holds a user's display preferences and running bankroll.
// At most one config exists per user, conventionally first in the ledger.
type UserConfig struct {
	House      string          `json:"house"`
	Currency   string          `json:"currency"`
	OddsFormat OddsFormat      `json:"odds_format"`
	Bankroll   decimal.Decimal `json:"bankroll"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Selection is one leg of a parley bet. The description is uninterpreted.
type Selection struct {
	Match       string `json:"match"`
	Market      string `json:"market"`
	Odd         string `json:"odd,omitempty"`
	Description string `json:"description,omitempty"`
}

// Bet is a single ledger record. Bankroll snapshots reflect the running
// balance immediately before and after this bet's effect was applied.
type Bet struct {
	ID             string          `json:"id"`
	IsParley       bool            `json:"is_parley"`
	Selections     []Selection     `json:"selections,omitempty"`
	Match          string          `json:"match"`
	Market         string          `json:"market"`
	OddEntered     string          `json:"odd_entered"`
	OddDecimal     decimal.Decimal `json:"odd_decimal"`
	OddsFormatUsed OddsFormat      `json:"odds_format_used"`
	Currency       string          `json:"currency"` // copied from config at creation
	Stake          decimal.Decimal `json:"stake"`
	BankrollBefore decimal.Decimal `json:"bankroll_before"`
	BankrollAfter  decimal.Decimal `json:"bankroll_after"`
	Outcome        Outcome         `json:"outcome"`
	Profit         decimal.Decimal `json:"profit"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Entry kinds.
const (
	EntryConfig = "config"
	EntryBet    = "bet"
)

/// Entry is the tagged variant stored in a user's ledger: exactly one of
// Config or Bet is set, per Kind.
type Entry struct {
	Kind   string      `json:"kind"`
	Config *UserConfig `json:"config,omitempty"`
	Bet    *Bet        `json:"bet,omitempty"`
}

// UserLedger is one user's ordered collection of entries. Insertion order
// is significant; it is the only ordering key for recent-N queries.
type UserLedger struct {
	UserID  string  `json:"user_id"`
	Entries []Entry `json:"entries"`
}

// Config returns the ledger's config entry, or nil when none exists.
func (l *UserLedger) Config() *UserConfig {
	for i := range l.Entries {
		if l.Entries[i].Kind == EntryConfig {
			return l.Entries[i].Config
		}
	}
	return nil
}

// Bets returns the bet entries in stored order, excluding the config.
func (l *UserLedger) Bets() []*Bet {
	var bets []*Bet
	for i := range l.Entries {
		if l.Entries[i].Kind == EntryBet {
			bets = append(bets, l.Entries[i].Bet)
		}
	}
	return bets
}

// MonthlySummary aggregates one calendar month of a user's bets.
type MonthlySummary struct {
	Year        int             `json:"year"`
	Month       time.Month      `json:"month"`
	TotalBets   int             `json:"total_bets"`
	TotalStaked decimal.Decimal `json:"total_staked"`
	NetProfit   decimal.Decimal `json:"net_profit"`
	Won         int             `json:"won"`
	Lost        int             `json:"lost"`
	Pushes      int             `json:"pushes"`
	WinRate     decimal.Decimal `json:"win_rate"` // percent, 0 when no bets
	Currency    string          `json:"currency"`
}

// Prediction is one recorded match prediction, later filled in by the
// evaluation cycle with the real result.
type Prediction struct {
	ID         string    `json:"id"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	Pick       string    `json:"pick"` // "home", "draw", "away"
	ProbHome   float64   `json:"prob_home"`
	ProbDraw   float64   `json:"prob_draw"`
	ProbAway   float64   `json:"prob_away"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`

	// Filled in by evaluation; RealResult stays empty until then.
	RealResult  string     `json:"real_result,omitempty"` // "home", "draw", "away"
	Hit         *bool      `json:"hit,omitempty"`
	EvaluatedAt *time.Time `json:"evaluated_at,omitempty"`
}

// Evaluated reports whether the prediction has been checked against a
// real result.
func (p *Prediction) Evaluated() bool {
	return p.RealResult != ""
}

// ModelState is the persisted self-learning state: per-side biases and a
// confidence factor that follows measured precision over time.
type ModelState struct {
	HomeBias         float64          `json:"home_bias"`
	AwayBias         float64          `json:"away_bias"`
	Confidence       float64          `json:"confidence"`
	PrecisionHistory []PrecisionPoint `json:"precision_history"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// PrecisionPoint is one measured precision sample.
type PrecisionPoint struct {
	At        time.Time `json:"at"`
	Precision float64   `json:"precision"` // percent
	Evaluated int       `json:"evaluated"`
	Hits      int       `json:"hits"`
}

// Event is one entry in the bot's activity memory. UserID is empty for
// global (system) events.
type Event struct {
	UserID    string         `json:"user_id,omitempty"`
	Action    string         `json:"action"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
