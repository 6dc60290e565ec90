package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neurobet/neurobet/internal/model"
	"github.com/neurobet/neurobet/internal/odds"
	"github.com/neurobet/neurobet/internal/store"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newTestService() (*Service, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return NewService(st, nil), st
}

// --- Config ---

func TestSetConfig_InsertsFirst(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "1.8", Stake: d(10),
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.SetConfig(ctx, "u1", "Caliente", "MXN", model.FormatDecimal, d(1000)); err != nil {
		t.Fatalf("set config: %v", err)
	}

	l, _ := svc.Ledger(ctx, "u1")
	if len(l.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(l.Entries))
	}
	if l.Entries[0].Kind != model.EntryConfig {
		t.Errorf("config should be first, got %s", l.Entries[0].Kind)
	}
}

func TestSetConfig_ReplacesInPlace(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.SetConfig(ctx, "u1", "Caliente", "MXN", model.FormatDecimal, d(1000))
	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "1.8", Stake: d(10),
	})
	cfg, err := svc.SetConfig(ctx, "u1", "Bet365", "USD", model.FormatAmerican, d(500))
	if err != nil {
		t.Fatalf("set config: %v", err)
	}
	if cfg.House != "Bet365" || cfg.Currency != "USD" {
		t.Errorf("config not replaced wholesale: %+v", cfg)
	}

	l, _ := svc.Ledger(ctx, "u1")
	if len(l.Entries) != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", len(l.Entries))
	}
	if l.Entries[0].Kind != model.EntryConfig {
		t.Errorf("config position not preserved")
	}
	if !l.Entries[0].Config.Bankroll.Equal(d(500)) {
		t.Errorf("bankroll = %s, want 500", l.Entries[0].Config.Bankroll)
	}
}

func TestSetConfig_InvalidFormat(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.SetConfig(context.Background(), "u1", "Casa", "MXN", "fractional", d(100))
	if !errors.Is(err, ErrInvalidOddsFormat) {
		t.Errorf("expected ErrInvalidOddsFormat, got %v", err)
	}
}

func TestGetConfig_DefaultWithoutSideEffects(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cfg, err := svc.GetConfig(ctx, "ghost")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.Currency != DefaultCurrency || cfg.OddsFormat != model.FormatDecimal || !cfg.Bankroll.IsZero() {
		t.Errorf("unexpected default config: %+v", cfg)
	}

	// No record may be created as a side effect.
	l, _ := svc.Ledger(ctx, "ghost")
	if len(l.Entries) != 0 {
		t.Errorf("GetConfig persisted %d entries", len(l.Entries))
	}

	// A subsequent pending registration still sees no prior config record.
	svc.RegisterBet(ctx, "ghost", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "2.0", Stake: d(50),
	})
	l, _ = svc.Ledger(ctx, "ghost")
	if len(l.Entries) != 1 || l.Entries[0].Kind != model.EntryBet {
		t.Errorf("pending bet should not materialize a config: %d entries", len(l.Entries))
	}
}

// --- Registration ---

func TestRegisterBet_Won(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))

	bet, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML A", OddInput: "2.5", Stake: d(100),
		Outcome: model.OutcomeWon,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !bet.Profit.Equal(d(150)) {
		t.Errorf("profit = %s, want 150", bet.Profit)
	}
	if !bet.BankrollAfter.Equal(bet.BankrollBefore.Add(bet.Profit)) {
		t.Errorf("bankroll_after %s != before %s + profit %s",
			bet.BankrollAfter, bet.BankrollBefore, bet.Profit)
	}

	cfg, _ := svc.GetConfig(ctx, "u1")
	if !cfg.Bankroll.Equal(d(1150)) {
		t.Errorf("config bankroll = %s, want 1150", cfg.Bankroll)
	}
}

// A lost bet always loses exactly the stake, regardless of odds.
func TestRegisterBet_Lost(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))

	for i, odd := range []string{"1.2", "3.75", "+900", "-105"} {
		bet, err := svc.RegisterBet(ctx, "u1", RegisterParams{
			Match: fmt.Sprintf("match %d", i), Market: "ML", OddInput: odd, Stake: d(40),
			Outcome: model.OutcomeLost,
		})
		if err != nil {
			t.Fatalf("register %q: %v", odd, err)
		}
		if !bet.Profit.Equal(d(-40)) {
			t.Errorf("odd %q: profit = %s, want -40", odd, bet.Profit)
		}
	}

	cfg, _ := svc.GetConfig(ctx, "u1")
	if !cfg.Bankroll.Equal(d(840)) {
		t.Errorf("bankroll = %s, want 840", cfg.Bankroll)
	}
}

func TestRegisterBet_Push(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))

	bet, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "AH 0", OddInput: "1.9", Stake: d(100),
		Outcome: model.OutcomePush,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !bet.Profit.IsZero() {
		t.Errorf("push profit = %s, want 0", bet.Profit)
	}
	if !bet.BankrollAfter.Equal(bet.BankrollBefore) {
		t.Errorf("push must not move bankroll: before %s after %s",
			bet.BankrollBefore, bet.BankrollAfter)
	}
}

func TestRegisterBet_PendingLeavesBankrollAlone(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))

	bet, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "-150", Stake: d(100),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if bet.Outcome != model.OutcomePending {
		t.Errorf("default outcome = %s, want pending", bet.Outcome)
	}
	if !bet.Profit.IsZero() || !bet.BankrollAfter.Equal(d(1000)) {
		t.Errorf("pending bet must not move bankroll: profit %s after %s",
			bet.Profit, bet.BankrollAfter)
	}
	if !bet.OddDecimal.Equal(d(1.6667)) {
		t.Errorf("odd_decimal = %s, want 1.6667", bet.OddDecimal)
	}
	if bet.OddsFormatUsed != model.FormatAmerican {
		t.Errorf("format used = %s, want american", bet.OddsFormatUsed)
	}
	if bet.OddEntered != "-150" {
		t.Errorf("entered odd not preserved: %q", bet.OddEntered)
	}
}

func TestRegisterBet_CurrencyCopiedAtCreation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))

	bet, _ := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "1.8", Stake: d(10),
	})
	if bet.Currency != "MXN" {
		t.Fatalf("currency = %q, want MXN", bet.Currency)
	}

	// A later currency change does not retroactively alter past bets.
	svc.SetConfig(ctx, "u1", "Casa", "USD", model.FormatDecimal, d(1000))
	l, _ := svc.Ledger(ctx, "u1")
	if got := l.Bets()[0].Currency; got != "MXN" {
		t.Errorf("past bet currency = %q, want MXN", got)
	}
}

func TestRegisterBet_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "1.8", Stake: d(0),
	}); !errors.Is(err, ErrInvalidStake) {
		t.Errorf("zero stake: expected ErrInvalidStake, got %v", err)
	}
	if _, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "1.8", Stake: d(-5),
	}); !errors.Is(err, ErrInvalidStake) {
		t.Errorf("negative stake: expected ErrInvalidStake, got %v", err)
	}
	if _, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "abc", Stake: d(10),
	}); !errors.Is(err, odds.ErrInvalidOdds) {
		t.Errorf("bad odd: expected ErrInvalidOdds, got %v", err)
	}
	if _, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "parley", OddInput: "5.0", Stake: d(10),
		IsParley: true,
	}); !errors.Is(err, ErrInvalidParley) {
		t.Errorf("parley without selections: expected ErrInvalidParley, got %v", err)
	}
	if _, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "1.8", Stake: d(10),
		Outcome: "void",
	}); !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("unknown outcome: expected ErrInvalidOutcome, got %v", err)
	}
}

func TestRegisterBet_Parley(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	bet, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "combo", Market: "parley x2", OddInput: "4.5", Stake: d(20),
		IsParley: true,
		Selections: []model.Selection{
			{Match: "A vs B", Market: "ML A"},
			{Match: "C vs D", Market: "Over 2.5"},
		},
	})
	if err != nil {
		t.Fatalf("register parley: %v", err)
	}
	if !bet.IsParley || len(bet.Selections) != 2 {
		t.Errorf("parley selections not preserved: %+v", bet)
	}
}

// Sequential registrations yield exactly N bets plus at most one config,
// in call order.
func TestRegisterBet_SequentialOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))

	const n = 25
	for i := 0; i < n; i++ {
		if _, err := svc.RegisterBet(ctx, "u1", RegisterParams{
			Match: fmt.Sprintf("match %d", i), Market: "ML", OddInput: "1.9", Stake: d(10),
		}); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	l, _ := svc.Ledger(ctx, "u1")
	if len(l.Entries) != n+1 {
		t.Fatalf("expected %d entries, got %d", n+1, len(l.Entries))
	}
	for i, bet := range l.Bets() {
		if want := fmt.Sprintf("match %d", i); bet.Match != want {
			t.Errorf("bet %d out of order: %q", i, bet.Match)
		}
	}
}

// Per-user serialization: concurrent registrations must not lose updates.
func TestRegisterBet_ConcurrentNoLostUpdates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.RegisterBet(ctx, "u1", RegisterParams{
				Match: fmt.Sprintf("match %d", i), Market: "ML", OddInput: "2.0", Stake: d(10),
				Outcome: model.OutcomeLost,
			}); err != nil {
				t.Errorf("register %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	l, _ := svc.Ledger(ctx, "u1")
	if got := len(l.Bets()); got != n {
		t.Errorf("lost updates: %d bets, want %d", got, n)
	}
	cfg, _ := svc.GetConfig(ctx, "u1")
	if !cfg.Bankroll.Equal(d(1000 - 10*n)) {
		t.Errorf("bankroll = %s, want %d", cfg.Bankroll, 1000-10*n)
	}
}

// --- Settlement ---

// End-to-end scenario: config 1000 MXN, pending -150 bet of 100, settled won.
func TestSettleBet_EndToEnd(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.SetConfig(ctx, "u1", "Generica", "MXN", model.FormatDecimal, d(1000))
	bet, err := svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "Moneyline A", OddInput: "-150", Stake: d(100),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !bet.OddDecimal.Equal(d(1.6667)) {
		t.Fatalf("odd_decimal = %s, want 1.6667", bet.OddDecimal)
	}
	if !bet.BankrollAfter.Equal(d(1000)) || !bet.BankrollBefore.Equal(d(1000)) {
		t.Fatalf("pending snapshots wrong: before %s after %s",
			bet.BankrollBefore, bet.BankrollAfter)
	}

	// Index 1: first bet after the config at index 0.
	settled, err := svc.SettleBet(ctx, "u1", 1, model.OutcomeWon)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !settled.Profit.Equal(d(66.67)) {
		t.Errorf("profit = %s, want 66.67", settled.Profit)
	}
	if !settled.BankrollAfter.Equal(d(1066.67)) {
		t.Errorf("bankroll_after = %s, want 1066.67", settled.BankrollAfter)
	}
	cfg, _ := svc.GetConfig(ctx, "u1")
	if !cfg.Bankroll.Equal(d(1066.67)) {
		t.Errorf("config bankroll = %s, want 1066.67", cfg.Bankroll)
	}
}

// Settlement uses the current bankroll, not the bet's creation snapshot.
func TestSettleBet_AgainstCurrentBankroll(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))
	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "2.0", Stake: d(100),
	})
	// A later lost bet moves the bankroll to 800.
	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "C vs D", Market: "ML", OddInput: "1.5", Stake: d(200),
		Outcome: model.OutcomeLost,
	})

	settled, err := svc.SettleBet(ctx, "u1", 1, model.OutcomeWon)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !settled.BankrollBefore.Equal(d(800)) {
		t.Errorf("settlement bankroll_before = %s, want current 800", settled.BankrollBefore)
	}
	if !settled.BankrollAfter.Equal(d(900)) {
		t.Errorf("bankroll_after = %s, want 900", settled.BankrollAfter)
	}
	if !settled.BankrollAfter.Equal(settled.BankrollBefore.Add(settled.Profit)) {
		t.Errorf("settled invariant broken: %s != %s + %s",
			settled.BankrollAfter, settled.BankrollBefore, settled.Profit)
	}
}

func TestSettleBet_Errors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))
	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "2.0", Stake: d(100),
	})

	if _, err := svc.SettleBet(ctx, "u1", 5, model.OutcomeWon); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("out of range: got %v", err)
	}
	if _, err := svc.SettleBet(ctx, "u1", -1, model.OutcomeWon); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("negative index: got %v", err)
	}
	if _, err := svc.SettleBet(ctx, "u1", 0, model.OutcomeWon); !errors.Is(err, ErrNotABet) {
		t.Errorf("config slot: got %v", err)
	}
	if _, err := svc.SettleBet(ctx, "u1", 1, model.OutcomePending); !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("settle to pending: got %v", err)
	}
}

// Re-settlement is rejected: a second invocation would re-apply the delta
// against the already-updated bankroll and double-count.
func TestSettleBet_RejectsResettlement(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))
	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "2.0", Stake: d(100),
	})

	if _, err := svc.SettleBet(ctx, "u1", 1, model.OutcomeWon); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	// Same outcome or a different one: both rejected.
	if _, err := svc.SettleBet(ctx, "u1", 1, model.OutcomeWon); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("re-settle same outcome: got %v", err)
	}
	if _, err := svc.SettleBet(ctx, "u1", 1, model.OutcomeLost); !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("re-settle new outcome: got %v", err)
	}

	// Bankroll applied exactly once.
	cfg, _ := svc.GetConfig(ctx, "u1")
	if !cfg.Bankroll.Equal(d(1100)) {
		t.Errorf("bankroll = %s, want 1100", cfg.Bankroll)
	}
}

// --- Summaries ---

func TestMonthlySummary_EmptyMonth(t *testing.T) {
	svc, _ := newTestService()

	sum, err := svc.MonthlySummary(context.Background(), "u1", 2026, time.February)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalBets != 0 {
		t.Errorf("total = %d, want 0", sum.TotalBets)
	}
	if !sum.WinRate.IsZero() {
		t.Errorf("win rate = %s, want 0", sum.WinRate)
	}
}

func TestMonthlySummary_Aggregates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))

	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "2.0", Stake: d(100),
		Outcome: model.OutcomeWon,
	})
	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "C vs D", Market: "ML", OddInput: "1.5", Stake: d(50),
		Outcome: model.OutcomeLost,
	})
	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "E vs F", Market: "AH 0", OddInput: "1.9", Stake: d(30),
		Outcome: model.OutcomePush,
	})
	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "G vs H", Market: "ML", OddInput: "3.0", Stake: d(20),
	})

	now := time.Now().UTC()
	sum, err := svc.MonthlySummary(ctx, "u1", now.Year(), now.Month())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalBets != 4 {
		t.Errorf("total = %d, want 4", sum.TotalBets)
	}
	if !sum.TotalStaked.Equal(d(200)) {
		t.Errorf("staked = %s, want 200", sum.TotalStaked)
	}
	if !sum.NetProfit.Equal(d(50)) { // +100 -50 +0 +0
		t.Errorf("net profit = %s, want 50", sum.NetProfit)
	}
	if sum.Won != 1 || sum.Lost != 1 || sum.Pushes != 1 {
		t.Errorf("counts w/l/p = %d/%d/%d, want 1/1/1", sum.Won, sum.Lost, sum.Pushes)
	}
	if !sum.WinRate.Equal(d(25)) {
		t.Errorf("win rate = %s, want 25", sum.WinRate)
	}
	if sum.Currency != "MXN" {
		t.Errorf("currency = %q, want MXN", sum.Currency)
	}
}

func TestRecentBets_MostRecentFirst(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.RegisterBet(ctx, "u1", RegisterParams{
			Match: fmt.Sprintf("match %d", i), Market: "ML", OddInput: "2.0", Stake: d(10),
		})
	}

	recent, err := svc.RecentBets(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	for i, want := range []string{"match 4", "match 3", "match 2"} {
		if recent[i].Match != want {
			t.Errorf("recent[%d] = %q, want %q", i, recent[i].Match, want)
		}
	}
}

func TestClear_RemovesWholeCollection(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.SetConfig(ctx, "u1", "Casa", "MXN", model.FormatDecimal, d(1000))
	svc.RegisterBet(ctx, "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "2.0", Stake: d(10),
	})

	if err := svc.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	l, _ := svc.Ledger(ctx, "u1")
	if len(l.Entries) != 0 {
		t.Errorf("entries remain after clear: %d", len(l.Entries))
	}
}

// --- Store failures ---

// failingStore wraps a working store but rejects writes.
type failingStore struct {
	*store.MemoryStore
}

func (f *failingStore) PutLedger(context.Context, *model.UserLedger) error {
	return fmt.Errorf("put ledger: %w: disk full", store.ErrUnavailable)
}

func TestRegisterBet_WriteFailureSurfaces(t *testing.T) {
	svc := NewService(&failingStore{store.NewMemoryStore()}, nil)

	_, err := svc.RegisterBet(context.Background(), "u1", RegisterParams{
		Match: "A vs B", Market: "ML", OddInput: "2.0", Stake: d(10),
	})
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
