package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neurobet/neurobet/internal/football"
	"github.com/neurobet/neurobet/internal/ledger"
	"github.com/neurobet/neurobet/internal/model"
	"github.com/neurobet/neurobet/internal/odds"
	"github.com/neurobet/neurobet/internal/store"
)

// splitMatch parses "Equipo1 vs Equipo2" into its two sides.
func splitMatch(args string) (home, away string, ok bool) {
	for _, sep := range []string{" vs ", " vs. ", " VS ", " Vs "} {
		if i := strings.Index(args, sep); i > 0 {
			home = strings.TrimSpace(args[:i])
			away = strings.TrimSpace(args[i+len(sep):])
			return home, away, home != "" && away != ""
		}
	}
	return "", "", false
}

// splitMarket splits "América vs Chivas | Moneyline" into match and
// market. Without the separator the whole string is the match.
func splitMarket(args string) (match, market string) {
	if i := strings.Index(args, "|"); i >= 0 {
		return strings.TrimSpace(args[:i]), strings.TrimSpace(args[i+1:])
	}
	return strings.TrimSpace(args), ""
}

func parseFormatWord(word string) (model.OddsFormat, bool) {
	switch strings.ToLower(word) {
	case "decimal":
		return model.FormatDecimal, true
	case "americano", "american":
		return model.FormatAmerican, true
	}
	return "", false
}

func parseOutcomeWord(word string) (model.Outcome, bool) {
	switch strings.ToLower(word) {
	case "ganada", "won":
		return model.OutcomeWon, true
	case "perdida", "lost":
		return model.OutcomeLost, true
	case "nula", "push":
		return model.OutcomePush, true
	}
	return "", false
}

func outcomeLabel(o model.Outcome) string {
	switch o {
	case model.OutcomeWon:
		return "Ganada ✅"
	case model.OutcomeLost:
		return "Perdida ❌"
	case model.OutcomePush:
		return "Nula ↩️"
	default:
		return "Pendiente ⏳"
	}
}

func pickLabel(pick, home, away string) string {
	switch pick {
	case "home":
		return home
	case "away":
		return away
	default:
		return "Empate"
	}
}

func formatConfig(cfg *model.UserConfig) string {
	format := "decimal"
	if cfg.OddsFormat == model.FormatAmerican {
		format = "americano"
	}
	return fmt.Sprintf(
		"⚙️ *Tu configuración:*\nCasa: %s\nMoneda: %s\nFormato de cuota: %s\nBankroll: %s %s",
		cfg.House, cfg.Currency, format,
		cfg.Bankroll.StringFixed(2), cfg.Currency,
	)
}

func actionLabel(action string) string {
	switch action {
	case "comando_predecir":
		return "Predicción solicitada"
	case "comando_apostar":
		return "Apuesta registrada"
	case "comando_resultado":
		return "Apuesta resuelta"
	case "comando_config":
		return "Configuración actualizada"
	default:
		return action
	}
}

// translateError maps domain errors to user-facing Spanish messages.
// Anything unrecognized gets a generic reply so internals never leak
// into chat.
func translateError(err error) string {
	switch {
	case errors.Is(err, odds.ErrInvalidOdds), errors.Is(err, ledger.ErrInvalidOddsFormat):
		return "⚠️ Cuota no válida. Usa formato decimal (1.85) o americano (-150, +200)."
	case errors.Is(err, ledger.ErrInvalidStake):
		return "⚠️ El monto debe ser mayor que cero."
	case errors.Is(err, ledger.ErrInvalidParley):
		return "⚠️ Una apuesta combinada necesita al menos dos selecciones."
	case errors.Is(err, ledger.ErrInvalidOutcome):
		return "⚠️ Resultado no válido. Usa ganada, perdida o nula."
	case errors.Is(err, ledger.ErrNotABet):
		return "⚠️ Ese índice no corresponde a una apuesta. Revisa /ultimas."
	case errors.Is(err, ledger.ErrIndexOutOfRange):
		return "⚠️ No existe una apuesta con ese índice. Revisa /ultimas."
	case errors.Is(err, ledger.ErrAlreadySettled):
		return "⚠️ Esa apuesta ya fue resuelta y no puede modificarse."
	case errors.Is(err, football.ErrTeamNotFound):
		return "⚠️ No encontré uno de los equipos. Revisa los nombres."
	case errors.Is(err, store.ErrUnavailable):
		return "😔 No pude guardar los datos. Inténtalo de nuevo en un momento."
	default:
		return "😔 Algo salió mal. Inténtalo de nuevo en un momento."
	}
}
