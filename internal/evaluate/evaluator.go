// Package evaluate closes the loop on recorded predictions: it looks up
// real results for anything not yet evaluated, marks hits and misses,
// tracks running precision, and feeds the outcome back into the persisted
// model state (confidence factor and per-side biases).
package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/neurobet/neurobet/internal/football"
	"github.com/neurobet/neurobet/internal/model"
	"github.com/neurobet/neurobet/internal/store"
)

const (
	// resultFetchLimit bounds how many finished matches one cycle pulls.
	resultFetchLimit = 50

	// biasStep is how far one miss nudges the per-side bias.
	biasStep = 0.05

	// biasClamp bounds the learned biases so a losing streak cannot bury
	// the form features.
	biasClamp = 0.5

	// historyCap bounds the persisted precision history.
	historyCap = 100
)

// ResultSource provides finished match results. *football.Client
// satisfies it.
type ResultSource interface {
	FinishedMatches(ctx context.Context, limit int) ([]football.Result, error)
}

// Report summarizes one evaluation cycle.
type Report struct {
	Evaluated int     `json:"evaluated"`
	Hits      int     `json:"hits"`
	Precision float64 `json:"precision"` // percent over this cycle
}

// Evaluator checks recorded predictions against real results.
type Evaluator struct {
	results ResultSource
	store   store.Store
	logger  *slog.Logger

	now func() time.Time
}

// New creates an evaluator.
func New(results ResultSource, st store.Store, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		results: results,
		store:   st,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run evaluates every pending prediction it can find a result for and
// updates the model state. Predictions without a finished result stay
// pending for the next cycle.
func (e *Evaluator) Run(ctx context.Context) (*Report, error) {
	preds, err := e.store.ListPredictions(ctx)
	if err != nil {
		return nil, err
	}

	var pending []model.Prediction
	for _, p := range preds {
		if !p.Evaluated() {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		e.logger.Info("no predictions to evaluate")
		return &Report{}, nil
	}

	results, err := e.results.FinishedMatches(ctx, resultFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}

	report := &Report{}
	var homeMisses, awayMisses int

	for i := range pending {
		p := &pending[i]
		res := matchResult(results, p.HomeTeam, p.AwayTeam)
		if res == nil {
			continue
		}

		hit := p.Pick == res.Winner
		at := e.now()
		p.RealResult = res.Winner
		p.Hit = &hit
		p.EvaluatedAt = &at
		if err := e.store.UpdatePrediction(ctx, p); err != nil {
			return nil, err
		}

		report.Evaluated++
		if hit {
			report.Hits++
			e.logger.Info("prediction hit",
				"match", p.HomeTeam+" vs "+p.AwayTeam, "pick", p.Pick)
		} else {
			if res.Winner == "home" {
				homeMisses++
			} else if res.Winner == "away" {
				awayMisses++
			}
			e.logger.Info("prediction missed",
				"match", p.HomeTeam+" vs "+p.AwayTeam,
				"pick", p.Pick, "real", res.Winner)
		}
	}

	if report.Evaluated > 0 {
		report.Precision = round2(float64(report.Hits) / float64(report.Evaluated) * 100)
		if err := e.updateModelState(ctx, report, homeMisses, awayMisses); err != nil {
			return nil, err
		}
	}

	e.logger.Info("evaluation cycle completed",
		"evaluated", report.Evaluated,
		"hits", report.Hits,
		"precision", report.Precision,
	)

	event := &model.Event{
		Action: "auto_evaluation",
		Data: map[string]any{
			"evaluated": report.Evaluated,
			"hits":      report.Hits,
			"precision": report.Precision,
		},
		Timestamp: e.now(),
	}
	if err := e.store.AppendEvent(ctx, event); err != nil {
		e.logger.Error("failed to record evaluation event", "err", err)
	}

	return report, nil
}

// updateModelState folds one cycle's result into the persisted state:
// confidence follows measured precision, and misses nudge the bias of the
// side that actually won.
func (e *Evaluator) updateModelState(ctx context.Context, report *Report, homeMisses, awayMisses int) error {
	state, err := e.store.GetModelState(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		state = &model.ModelState{Confidence: 1.0}
	}

	state.Confidence = round3(report.Precision / 100)
	state.HomeBias = clamp(state.HomeBias+float64(homeMisses)*biasStep, biasClamp)
	state.AwayBias = clamp(state.AwayBias+float64(awayMisses)*biasStep, biasClamp)
	state.PrecisionHistory = append(state.PrecisionHistory, model.PrecisionPoint{
		At:        e.now(),
		Precision: report.Precision,
		Evaluated: report.Evaluated,
		Hits:      report.Hits,
	})
	if len(state.PrecisionHistory) > historyCap {
		state.PrecisionHistory = state.PrecisionHistory[len(state.PrecisionHistory)-historyCap:]
	}
	state.UpdatedAt = e.now()

	return e.store.PutModelState(ctx, state)
}

// OverallPrecision reduces the whole prediction history into lifetime
// precision, for the /precision command.
func (e *Evaluator) OverallPrecision(ctx context.Context) (*Report, error) {
	preds, err := e.store.ListPredictions(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, p := range preds {
		if !p.Evaluated() {
			continue
		}
		report.Evaluated++
		if p.Hit != nil && *p.Hit {
			report.Hits++
		}
	}
	if report.Evaluated > 0 {
		report.Precision = round2(float64(report.Hits) / float64(report.Evaluated) * 100)
	}
	return report, nil
}

// matchResult finds the finished result for a predicted pairing. Matching
// is by case-insensitive substring, the same loose rule used when teams
// are typed into chat commands.
func matchResult(results []football.Result, home, away string) *football.Result {
	h := strings.ToLower(strings.TrimSpace(home))
	a := strings.ToLower(strings.TrimSpace(away))
	for i := range results {
		if strings.Contains(strings.ToLower(results[i].HomeTeam), h) &&
			strings.Contains(strings.ToLower(results[i].AwayTeam), a) {
			return &results[i]
		}
	}
	return nil
}

func clamp(v, bound float64) float64 {
	return math.Max(-bound, math.Min(bound, v))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
