package feed

import (
	"github.com/neurobet/neurobet/internal/model"
)

// Notifier bridges ledger events onto the hub.
type Notifier struct {
	hub *Hub
}

// NewNotifier wraps a hub for use as the ledger's notifier.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// BetRegistered pushes a newly recorded bet to all clients.
func (n *Notifier) BetRegistered(userID string, bet *model.Bet) {
	n.hub.Broadcast(Message{
		Type:     "bet_registered",
		UserID:   userID,
		BetID:    bet.ID,
		Match:    bet.Match,
		Outcome:  string(bet.Outcome),
		Stake:    bet.Stake.StringFixed(2),
		Profit:   bet.Profit.StringFixed(2),
		Bankroll: bet.BankrollAfter.StringFixed(2),
	})
}

// BetSettled pushes a settlement to all clients.
func (n *Notifier) BetSettled(userID string, bet *model.Bet) {
	n.hub.Broadcast(Message{
		Type:     "bet_settled",
		UserID:   userID,
		BetID:    bet.ID,
		Match:    bet.Match,
		Outcome:  string(bet.Outcome),
		Stake:    bet.Stake.StringFixed(2),
		Profit:   bet.Profit.StringFixed(2),
		Bankroll: bet.BankrollAfter.StringFixed(2),
	})
}

// PredictionMade pushes a fresh prediction to all clients.
func (n *Notifier) PredictionMade(p *model.Prediction) {
	n.hub.Broadcast(Message{
		Type:  "prediction",
		Match: p.HomeTeam + " vs " + p.AwayTeam,
		Pick:  p.Pick,
	})
}
