// Package predict produces 3-way match outcome distributions
// (home/draw/away). With the stats API available it derives each side's
// score from recent form; without it, it falls back to a simulated but
// plausible distribution, the mode the bot shipped with before the stats
// integration.
//
// Every produced prediction is recorded to the history store so the
// evaluation cycle can check it against the real result later.
package predict

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/neurobet/neurobet/internal/football"
	"github.com/neurobet/neurobet/internal/model"
	"github.com/neurobet/neurobet/internal/store"
)

// Feature weights for the stats-driven score. Tuned by eye against a
// season of Liga MX results; nothing here is fitted.
const (
	homeAdvantage = 0.20
	goalDiffWt    = 0.35
	winRateWt     = 0.60
	drawBase      = 0.10
	drawSpreadWt  = 0.25
)

// StatsSource provides recent team form. *football.Client satisfies it;
// it is nil when the bot runs without an API key.
type StatsSource interface {
	TeamStats(ctx context.Context, name string) (*football.TeamStats, error)
}

// Predictor computes and records match predictions.
type Predictor struct {
	stats  StatsSource
	store  store.Store
	logger *slog.Logger

	now  func() time.Time
	rand func() float64
}

// New creates a predictor. Pass nil stats to run in simulated mode only.
func New(stats StatsSource, st store.Store, logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{
		stats:  stats,
		store:  st,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		rand:   rand.Float64,
	}
}

// Predict produces a distribution for home vs away and appends it to the
// prediction history.
func (p *Predictor) Predict(ctx context.Context, home, away string) (*model.Prediction, error) {
	state, err := p.store.GetModelState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &model.ModelState{Confidence: 1.0}
	}

	var probHome, probDraw, probAway float64
	if p.stats != nil {
		probHome, probDraw, probAway, err = p.fromStats(ctx, home, away, state)
		if err != nil {
			p.logger.Warn("stats unavailable, using simulated distribution",
				"home", home, "away", away, "err", err)
			probHome, probDraw, probAway = p.simulated()
		}
	} else {
		probHome, probDraw, probAway = p.simulated()
	}

	pick := "home"
	if probDraw > probHome && probDraw >= probAway {
		pick = "draw"
	} else if probAway > probHome {
		pick = "away"
	}

	pred := &model.Prediction{
		ID:         uuid.New().String(),
		HomeTeam:   home,
		AwayTeam:   away,
		Pick:       pick,
		ProbHome:   round3(probHome),
		ProbDraw:   round3(probDraw),
		ProbAway:   round3(probAway),
		Confidence: round3(state.Confidence),
		CreatedAt:  p.now(),
	}

	if err := p.store.AppendPrediction(ctx, pred); err != nil {
		return nil, err
	}

	p.logger.Info("prediction recorded",
		"home", home,
		"away", away,
		"pick", pick,
		"prob_home", pred.ProbHome,
		"prob_draw", pred.ProbDraw,
		"prob_away", pred.ProbAway,
	)
	return pred, nil
}

// fromStats scores both sides from recent form and squashes the scores
// through a softmax. The learned per-side biases shift the scores before
// squashing.
func (p *Predictor) fromStats(ctx context.Context, home, away string, state *model.ModelState) (float64, float64, float64, error) {
	hs, err := p.stats.TeamStats(ctx, home)
	if err != nil {
		return 0, 0, 0, err
	}
	as, err := p.stats.TeamStats(ctx, away)
	if err != nil {
		return 0, 0, 0, err
	}

	scoreHome := homeAdvantage +
		goalDiffWt*(hs.GoalsForAvg-hs.GoalsAgainst) +
		winRateWt*(hs.WinRate/100) +
		state.HomeBias
	scoreAway := goalDiffWt*(as.GoalsForAvg-as.GoalsAgainst) +
		winRateWt*(as.WinRate/100) +
		state.AwayBias
	// Evenly matched sides draw more often.
	scoreDraw := drawBase - drawSpreadWt*math.Abs(scoreHome-scoreAway)

	probHome, probDraw, probAway := softmax3(scoreHome, scoreDraw, scoreAway)
	return probHome, probDraw, probAway, nil
}

// simulated returns a plausible distribution without any data: one side
// favored between 40% and 70%, a draw share between 15% and 30%, and the
// remainder on the other side.
func (p *Predictor) simulated() (probHome, probDraw, probAway float64) {
	favorite := 0.40 + 0.30*p.rand()
	draw := 0.15 + 0.15*p.rand()
	if favorite+draw > 0.97 {
		draw = 0.97 - favorite
	}
	rest := 1 - favorite - draw

	if p.rand() < 0.5 {
		return favorite, draw, rest
	}
	return rest, draw, favorite
}

// softmax3 squashes three scores into a distribution, shifting by the max
// for numerical stability.
func softmax3(a, b, c float64) (float64, float64, float64) {
	m := math.Max(a, math.Max(b, c))
	ea := math.Exp(a - m)
	eb := math.Exp(b - m)
	ec := math.Exp(c - m)
	sum := ea + eb + ec
	return ea / sum, eb / sum, ec / sum
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
