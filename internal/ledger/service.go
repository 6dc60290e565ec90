// Package ledger implements the bet ledger: per-user configuration, bet
// registration, settlement against the running bankroll, and read-only
// summaries.
//
// All monetary values use shopspring/decimal — never float64 for money.
//
// Every operation is a whole-document read-modify-write over the user's
// entry collection. Operations for the same user are serialized with a
// per-user lock, so two near-simultaneous writes cannot clobber each other.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/neurobet/neurobet/internal/model"
	"github.com/neurobet/neurobet/internal/odds"
	"github.com/neurobet/neurobet/internal/store"
)

var (
	// ErrInvalidStake is returned for a zero or negative stake.
	ErrInvalidStake = errors.New("ledger: stake must be positive")

	// ErrInvalidParley is returned when a parley bet carries no selections.
	ErrInvalidParley = errors.New("ledger: parley bet requires selections")

	// ErrInvalidOutcome is returned for an outcome outside
	// {won, lost, push, pending}, or for settling to pending.
	ErrInvalidOutcome = errors.New("ledger: invalid outcome")

	// ErrInvalidOddsFormat is returned when a config upsert names a format
	// outside {decimal, american}.
	ErrInvalidOddsFormat = errors.New("ledger: odds format must be decimal or american")

	// ErrNotABet is returned when settlement targets the config slot.
	ErrNotABet = errors.New("ledger: entry is not a bet")

	// ErrIndexOutOfRange is returned when a settlement index falls outside
	// the collection bounds.
	ErrIndexOutOfRange = errors.New("ledger: index out of range")

	// ErrAlreadySettled is returned when settlement targets a bet that is
	// no longer pending. Re-settlement would re-apply the delta against the
	// current bankroll and double-count, so it is rejected outright.
	ErrAlreadySettled = errors.New("ledger: bet already settled")
)

// Default config view for users who never configured, returned by GetConfig
// without ever being persisted.
const (
	DefaultHouse    = "Generica"
	DefaultCurrency = "Generic"
)

// Notifier receives ledger events for real-time broadcasting.
// Implementations must not block.
type Notifier interface {
	BetRegistered(userID string, bet *model.Bet)
	BetSettled(userID string, bet *model.Bet)
}

// Service is the bet ledger. Safe for concurrent use; operations on the
// same user are serialized.
type Service struct {
	store    store.Store
	notifier Notifier // optional

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// NewService creates a ledger service. Pass nil for notifier if event
// broadcasting is not needed.
func NewService(st store.Store, notifier Notifier) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
		locks:    make(map[string]*sync.Mutex),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// userLock returns the mutex serializing writes for one user.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// defaultConfig is the hard-coded view for never-configured users.
func defaultConfig() *model.UserConfig {
	return &model.UserConfig{
		House:      DefaultHouse,
		Currency:   DefaultCurrency,
		OddsFormat: model.FormatDecimal,
		Bankroll:   decimal.Zero,
	}
}

// SetConfig upserts the user's single config entry. A new config is
// inserted first in the collection; an existing one is replaced wholesale
// with its position preserved.
func (s *Service) SetConfig(ctx context.Context, userID, house, currency string, format model.OddsFormat, initialBankroll decimal.Decimal) (*model.UserConfig, error) {
	if !format.Valid() {
		return nil, ErrInvalidOddsFormat
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg := &model.UserConfig{
		House:      house,
		Currency:   currency,
		OddsFormat: format,
		Bankroll:   initialBankroll,
		UpdatedAt:  s.now(),
	}

	replaced := false
	for i := range ledger.Entries {
		if ledger.Entries[i].Kind == model.EntryConfig {
			ledger.Entries[i].Config = cfg
			replaced = true
			break
		}
	}
	if !replaced {
		ledger.Entries = append([]model.Entry{{Kind: model.EntryConfig, Config: cfg}}, ledger.Entries...)
	}

	if err := s.store.PutLedger(ctx, ledger); err != nil {
		return nil, err
	}

	slog.Info("user config saved",
		"user", userID,
		"house", house,
		"currency", currency,
		"format", format,
		"bankroll", initialBankroll.String(),
	)
	return cfg, nil
}

// GetConfig returns the stored config, or the hard-coded default when none
// exists. It never creates a record as a side effect.
func (s *Service) GetConfig(ctx context.Context, userID string) (*model.UserConfig, error) {
	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cfg := ledger.Config(); cfg != nil {
		return cfg, nil
	}
	return defaultConfig(), nil
}

// RegisterParams carries the inputs for RegisterBet. An empty Outcome
// means pending.
type RegisterParams struct {
	Match      string
	Market     string
	OddInput   string
	Stake      decimal.Decimal
	Outcome    model.Outcome
	IsParley   bool
	Selections []model.Selection
}

// RegisterBet appends a fully-computed bet record and keeps the config's
// bankroll in sync for non-pending entries. The entire updated collection
// (config plus all bets) persists as one atomic replace.
func (s *Service) RegisterBet(ctx context.Context, userID string, p RegisterParams) (*model.Bet, error) {
	outcome := p.Outcome
	if outcome == "" {
		outcome = model.OutcomePending
	}
	if !outcome.Valid() {
		return nil, ErrInvalidOutcome
	}
	if !p.Stake.IsPositive() {
		return nil, ErrInvalidStake
	}
	if p.IsParley && len(p.Selections) == 0 {
		return nil, ErrInvalidParley
	}

	oddDecimal, formatUsed, err := odds.ParseInput(p.OddInput)
	if err != nil {
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg := ledger.Config()
	view := cfg
	if view == nil {
		view = defaultConfig()
	}
	bankrollBefore := view.Bankroll

	profit, bankrollAfter := applyOutcome(outcome, p.Stake, oddDecimal, bankrollBefore)

	bet := &model.Bet{
		ID:             uuid.New().String(),
		IsParley:       p.IsParley,
		Selections:     p.Selections,
		Match:          p.Match,
		Market:         p.Market,
		OddEntered:     p.OddInput,
		OddDecimal:     oddDecimal,
		OddsFormatUsed: formatUsed,
		Currency:       view.Currency,
		Stake:          p.Stake,
		BankrollBefore: bankrollBefore,
		BankrollAfter:  bankrollAfter,
		Outcome:        outcome,
		Profit:         profit,
		CreatedAt:      s.now(),
	}
	ledger.Entries = append(ledger.Entries, model.Entry{Kind: model.EntryBet, Bet: bet})

	// A settled-at-creation bet moves the bankroll; sync the config within
	// the same persisted write. A pending bet leaves everything untouched,
	// so a never-configured user still has no config record afterwards.
	if outcome != model.OutcomePending {
		s.syncBankroll(ledger, cfg, bankrollAfter)
	}

	if err := s.store.PutLedger(ctx, ledger); err != nil {
		return nil, err
	}

	slog.Info("bet registered",
		"user", userID,
		"match", p.Match,
		"odd", oddDecimal.String(),
		"stake", p.Stake.String(),
		"outcome", outcome,
		"parley", p.IsParley,
	)
	if s.notifier != nil {
		s.notifier.BetRegistered(userID, bet)
	}
	return bet, nil
}

// SettleBet transitions the bet at index (0-based over the stored
// collection, config slot included) from pending to the given outcome.
// Profit is recomputed against the current config bankroll, not the bet's
// original snapshot: bets do not settle in order, they settle against
// whatever the bankroll is at settlement time.
func (s *Service) SettleBet(ctx context.Context, userID string, index int, outcome model.Outcome) (*model.Bet, error) {
	if !outcome.Valid() || outcome == model.OutcomePending {
		return nil, ErrInvalidOutcome
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(ledger.Entries) {
		return nil, ErrIndexOutOfRange
	}
	entry := &ledger.Entries[index]
	if entry.Kind == model.EntryConfig {
		return nil, ErrNotABet
	}
	bet := entry.Bet
	if bet.Outcome != model.OutcomePending {
		return nil, ErrAlreadySettled
	}

	cfg := ledger.Config()
	bankrollBefore := decimal.Zero
	if cfg != nil {
		bankrollBefore = cfg.Bankroll
	}

	profit, bankrollAfter := applyOutcome(outcome, bet.Stake, bet.OddDecimal, bankrollBefore)

	// The settlement snapshot replaces the creation-time one so that
	// bankroll_after always equals bankroll_before plus profit.
	bet.Outcome = outcome
	bet.Profit = profit
	bet.BankrollBefore = bankrollBefore
	bet.BankrollAfter = bankrollAfter
	s.syncBankroll(ledger, cfg, bankrollAfter)

	if err := s.store.PutLedger(ctx, ledger); err != nil {
		return nil, err
	}

	slog.Info("bet settled",
		"user", userID,
		"index", index,
		"outcome", outcome,
		"profit", profit.String(),
		"bankroll", bankrollAfter.String(),
	)
	if s.notifier != nil {
		s.notifier.BetSettled(userID, bet)
	}
	return bet, nil
}

// syncBankroll writes the new bankroll into the config entry, materializing
// a default config first when the user never configured one.
func (s *Service) syncBankroll(ledger *model.UserLedger, cfg *model.UserConfig, bankroll decimal.Decimal) {
	if cfg == nil {
		cfg = defaultConfig()
		cfg.UpdatedAt = s.now()
		ledger.Entries = append([]model.Entry{{Kind: model.EntryConfig, Config: cfg}}, ledger.Entries...)
	}
	cfg.Bankroll = bankroll
}

// applyOutcome computes profit and the resulting bankroll.
//
//	won:     profit = stake * (odd - 1), rounded to 2 places
//	lost:    profit = -stake
//	push:    profit = 0, stake returned
//	pending: profit = 0, no effect until settled
func applyOutcome(outcome model.Outcome, stake, oddDecimal, bankrollBefore decimal.Decimal) (profit, bankrollAfter decimal.Decimal) {
	switch outcome {
	case model.OutcomeWon:
		profit = stake.Mul(oddDecimal.Sub(decimal.NewFromInt(1))).Round(2)
		return profit, bankrollBefore.Add(profit)
	case model.OutcomeLost:
		return stake.Neg(), bankrollBefore.Sub(stake)
	default: // push, pending
		return decimal.Zero, bankrollBefore
	}
}

// Ledger returns the user's stored collection as-is. Callers listing bets
// for settlement must track indices against this exact ordering.
func (s *Service) Ledger(ctx context.Context, userID string) (*model.UserLedger, error) {
	return s.store.GetLedger(ctx, userID)
}

// MonthlySummary reduces one calendar month of the user's bets (config
// excluded). A month with zero bets yields zeros, never a division error.
func (s *Service) MonthlySummary(ctx context.Context, userID string, year int, month time.Month) (*model.MonthlySummary, error) {
	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	sum := &model.MonthlySummary{
		Year:        year,
		Month:       month,
		TotalStaked: decimal.Zero,
		NetProfit:   decimal.Zero,
		WinRate:     decimal.Zero,
	}

	for _, bet := range ledger.Bets() {
		at := bet.CreatedAt.UTC()
		if at.Year() != year || at.Month() != month {
			continue
		}
		sum.TotalBets++
		sum.TotalStaked = sum.TotalStaked.Add(bet.Stake)
		sum.NetProfit = sum.NetProfit.Add(bet.Profit)
		switch bet.Outcome {
		case model.OutcomeWon:
			sum.Won++
		case model.OutcomeLost:
			sum.Lost++
		case model.OutcomePush:
			sum.Pushes++
		}
	}

	if sum.TotalBets > 0 {
		sum.WinRate = decimal.NewFromInt(int64(sum.Won)).
			Div(decimal.NewFromInt(int64(sum.TotalBets))).
			Mul(decimal.NewFromInt(100)).Round(2)
	}

	cfg := ledger.Config()
	if cfg != nil {
		sum.Currency = cfg.Currency
	} else {
		sum.Currency = DefaultCurrency
	}
	return sum, nil
}

// RecentBets returns the last limit bets (config excluded),
// most-recent-first.
func (s *Service) RecentBets(ctx context.Context, userID string, limit int) ([]model.Bet, error) {
	ledger, err := s.store.GetLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	bets := ledger.Bets()
	var out []model.Bet
	for i := len(bets) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *bets[i])
	}
	return out, nil
}

// Clear removes the user's entire collection, config included.
func (s *Service) Clear(ctx context.Context, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.store.DeleteLedger(ctx, userID)
}
