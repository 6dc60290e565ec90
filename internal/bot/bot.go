// Package bot implements the Telegram command surface. Commands arrive
// either through the webhook endpoint or long polling, get dispatched to
// the domain services, and replies go back in Spanish, matching the
// audience the bot serves.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/neurobet/neurobet/internal/evaluate"
	"github.com/neurobet/neurobet/internal/ledger"
	"github.com/neurobet/neurobet/internal/memory"
	"github.com/neurobet/neurobet/internal/metrics"
	"github.com/neurobet/neurobet/internal/model"
	"github.com/neurobet/neurobet/internal/predict"
)

// Sender is the outbound half of the Telegram API. *tgbotapi.BotAPI
// satisfies it; tests substitute a recorder.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Broadcaster pushes fresh predictions to the live activity feed.
// *feed.Notifier satisfies it.
type Broadcaster interface {
	PredictionMade(p *model.Prediction)
}

// Handler dispatches Telegram updates to the domain services.
type Handler struct {
	api       Sender
	ledger    *ledger.Service
	predictor *predict.Predictor
	evaluator *evaluate.Evaluator
	memory    *memory.Service
	feed      Broadcaster // optional
	logger    *slog.Logger

	now func() time.Time
}

// New creates a command handler. Pass nil for fd to skip feed
// broadcasting.
func New(api Sender, lg *ledger.Service, pr *predict.Predictor, ev *evaluate.Evaluator, mem *memory.Service, fd Broadcaster, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		api:       api,
		ledger:    lg,
		predictor: pr,
		evaluator: ev,
		memory:    mem,
		feed:      fd,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleUpdate processes one Telegram update. Non-command messages are
// ignored.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	metrics.CommandsTotal.WithLabelValues(cmd).Inc()
	h.logger.Info("command received", "command", cmd, "user_id", userID)

	var reply string
	var err error
	switch cmd {
	case "start":
		reply = msgWelcome
	case "ayuda", "help":
		reply = msgHelp
	case "predecir":
		reply, err = h.cmdPredict(ctx, userID, args)
	case "config":
		reply, err = h.cmdConfig(ctx, userID, args)
	case "apostar":
		reply, err = h.cmdRegisterBet(ctx, userID, args)
	case "resultado":
		reply, err = h.cmdSettle(ctx, userID, args)
	case "resumen":
		reply, err = h.cmdSummary(ctx, userID, args)
	case "ultimas":
		reply, err = h.cmdRecent(ctx, userID)
	case "historial":
		reply, err = h.cmdHistory(ctx, userID)
	case "precision":
		reply, err = h.cmdPrecision(ctx)
	default:
		reply = "Comando no reconocido. Usa /ayuda para ver los comandos disponibles."
	}

	if err != nil {
		metrics.CommandErrors.WithLabelValues(cmd).Inc()
		reply = translateError(err)
	}
	h.reply(chatID, reply)
}

func (h *Handler) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.api.Send(msg); err != nil {
		h.logger.Error("failed to send reply", "chat_id", chatID, "err", err)
	}
}

const msgWelcome = "🤖 Bienvenido a *Neurobet IA Bot*.\n" +
	"Usa /predecir para analizar un partido o /ayuda para ver comandos."

const msgHelp = "📘 *Comandos disponibles:*\n" +
	"/start - Inicio\n" +
	"/predecir Equipo1 vs Equipo2 - Predicción IA\n" +
	"/config Casa Moneda formato bankroll - Configurar cuenta\n" +
	"/apostar cuota monto partido - Registrar apuesta\n" +
	"/resultado indice ganada|perdida|nula - Resolver apuesta\n" +
	"/resumen [año mes] - Resumen mensual\n" +
	"/ultimas - Últimas apuestas\n" +
	"/historial - Actividad reciente\n" +
	"/precision - Precisión del modelo\n" +
	"/ayuda - Ver comandos"

func (h *Handler) cmdPredict(ctx context.Context, userID, args string) (string, error) {
	home, away, ok := splitMatch(args)
	if !ok {
		return "Formato correcto: /predecir América vs Chivas", nil
	}

	p, err := h.predictor.Predict(ctx, home, away)
	if err != nil {
		return "", err
	}

	h.memory.RecordUser(ctx, userID, "comando_predecir", map[string]any{
		"match": home + " vs " + away,
		"pick":  p.Pick,
	})
	metrics.PredictionsTotal.WithLabelValues("command").Inc()
	if h.feed != nil {
		h.feed.PredictionMade(p)
	}

	return fmt.Sprintf(
		"🔮 *Predicción IA:*\n%s %.0f%% - Empate %.0f%% - %s %.0f%%\n"+
			"Apuesta sugerida: *%s* (confianza %.0f%%)",
		home, p.ProbHome*100, p.ProbDraw*100, away, p.ProbAway*100,
		pickLabel(p.Pick, home, away), p.Confidence*100,
	), nil
}

func (h *Handler) cmdConfig(ctx context.Context, userID, args string) (string, error) {
	if args == "" {
		cfg, err := h.ledger.GetConfig(ctx, userID)
		if err != nil {
			return "", err
		}
		return formatConfig(cfg), nil
	}

	fields := strings.Fields(args)
	if len(fields) != 4 {
		return "Formato correcto: /config Bet365 MXN americano 1000", nil
	}

	format, ok := parseFormatWord(fields[2])
	if !ok {
		return "Formato de cuota no válido. Usa decimal o americano.", nil
	}
	bankroll, err := decimal.NewFromString(fields[3])
	if err != nil {
		return "El bankroll inicial debe ser un número, por ejemplo 1000.", nil
	}

	cfg, err := h.ledger.SetConfig(ctx, userID, fields[0], fields[1], format, bankroll)
	if err != nil {
		return "", err
	}

	h.memory.RecordUser(ctx, userID, "comando_config", map[string]any{
		"house": cfg.House, "currency": cfg.Currency,
	})
	return "✅ Configuración guardada.\n" + formatConfig(cfg), nil
}

func (h *Handler) cmdRegisterBet(ctx context.Context, userID, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return "Formato correcto: /apostar -150 100 América vs Chivas | Moneyline", nil
	}

	oddInput := fields[0]
	stake, err := decimal.NewFromString(fields[1])
	if err != nil {
		return "El monto debe ser un número, por ejemplo 100.", nil
	}

	match, market := splitMarket(strings.Join(fields[2:], " "))
	bet, err := h.ledger.RegisterBet(ctx, userID, ledger.RegisterParams{
		Match:    match,
		Market:   market,
		OddInput: oddInput,
		Stake:    stake,
	})
	if err != nil {
		return "", err
	}

	h.memory.RecordUser(ctx, userID, "comando_apostar", map[string]any{
		"match": bet.Match, "stake": bet.Stake.StringFixed(2),
	})
	metrics.BetsRegistered.WithLabelValues(string(bet.Outcome)).Inc()

	return fmt.Sprintf(
		"🎰 *Apuesta registrada*\n%s\nCuota: %s (%s decimal)\nMonto: %s %s\nEstado: %s",
		bet.Match, bet.OddEntered, bet.OddDecimal.StringFixed(2),
		bet.Stake.StringFixed(2), bet.Currency, outcomeLabel(bet.Outcome),
	), nil
}

func (h *Handler) cmdSettle(ctx context.Context, userID, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "Formato correcto: /resultado 2 ganada", nil
	}

	index, err := strconv.Atoi(fields[0])
	if err != nil {
		return "El índice debe ser el número mostrado por /ultimas.", nil
	}
	outcome, ok := parseOutcomeWord(fields[1])
	if !ok {
		return "Resultado no válido. Usa ganada, perdida o nula.", nil
	}

	bet, err := h.ledger.SettleBet(ctx, userID, index, outcome)
	if err != nil {
		return "", err
	}

	h.memory.RecordUser(ctx, userID, "comando_resultado", map[string]any{
		"match": bet.Match, "outcome": string(bet.Outcome),
	})
	metrics.BetsSettled.WithLabelValues(string(bet.Outcome)).Inc()

	return fmt.Sprintf(
		"📊 *Apuesta resuelta: %s*\n%s\nGanancia: %s %s\nBankroll: %s %s",
		outcomeLabel(bet.Outcome), bet.Match,
		bet.Profit.StringFixed(2), bet.Currency,
		bet.BankrollAfter.StringFixed(2), bet.Currency,
	), nil
}

func (h *Handler) cmdSummary(ctx context.Context, userID, args string) (string, error) {
	now := h.now()
	year, month := now.Year(), now.Month()

	fields := strings.Fields(args)
	if len(fields) == 2 {
		y, err1 := strconv.Atoi(fields[0])
		m, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || m < 1 || m > 12 {
			return "Formato correcto: /resumen 2026 8", nil
		}
		year, month = y, time.Month(m)
	} else if len(fields) != 0 {
		return "Formato correcto: /resumen 2026 8", nil
	}

	sum, err := h.ledger.MonthlySummary(ctx, userID, year, month)
	if err != nil {
		return "", err
	}
	if sum.TotalBets == 0 {
		return fmt.Sprintf("Sin apuestas registradas en %d-%02d.", year, int(month)), nil
	}

	return fmt.Sprintf(
		"📅 *Resumen %d-%02d*\nApuestas: %d\nApostado: %s %s\nGanancia neta: %s %s\n"+
			"Ganadas: %d · Perdidas: %d · Nulas: %d\nEfectividad: %s%%",
		year, int(month), sum.TotalBets,
		sum.TotalStaked.StringFixed(2), sum.Currency,
		sum.NetProfit.StringFixed(2), sum.Currency,
		sum.Won, sum.Lost, sum.Pushes, sum.WinRate.StringFixed(2),
	), nil
}

// cmdRecent lists the latest bets with the ledger index each occupies, so
// /resultado can reference them directly.
func (h *Handler) cmdRecent(ctx context.Context, userID string) (string, error) {
	ul, err := h.ledger.Ledger(ctx, userID)
	if err != nil {
		return "", err
	}

	type indexed struct {
		index int
		bet   *model.Bet
	}
	var bets []indexed
	for i := range ul.Entries {
		if ul.Entries[i].Kind == model.EntryBet {
			bets = append(bets, indexed{index: i, bet: ul.Entries[i].Bet})
		}
	}
	if len(bets) == 0 {
		return "Aún no tienes apuestas registradas. Usa /apostar para empezar.", nil
	}

	const limit = 10
	if len(bets) > limit {
		bets = bets[len(bets)-limit:]
	}

	var b strings.Builder
	b.WriteString("🧾 *Últimas apuestas:*\n")
	for i := len(bets) - 1; i >= 0; i-- {
		bet := bets[i].bet
		fmt.Fprintf(&b, "%d. %s · %s · %s %s · %s\n",
			bets[i].index, bet.Match, bet.OddEntered,
			bet.Stake.StringFixed(2), bet.Currency, outcomeLabel(bet.Outcome))
	}
	return b.String(), nil
}

func (h *Handler) cmdHistory(ctx context.Context, userID string) (string, error) {
	events, err := h.memory.History(ctx, userID, memory.DefaultHistoryLimit)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "Sin actividad registrada todavía.", nil
	}

	var b strings.Builder
	b.WriteString("🕑 *Actividad reciente:*\n")
	for _, e := range events {
		fmt.Fprintf(&b, "%s · %s\n", e.Timestamp.Format("02/01 15:04"), actionLabel(e.Action))
	}
	return b.String(), nil
}

func (h *Handler) cmdPrecision(ctx context.Context) (string, error) {
	report, err := h.evaluator.OverallPrecision(ctx)
	if err != nil {
		return "", err
	}
	if report.Evaluated == 0 {
		return "Aún no hay predicciones evaluadas.", nil
	}
	return fmt.Sprintf(
		"🎯 *Precisión del modelo:* %.2f%%\nPredicciones evaluadas: %d\nAciertos: %d",
		report.Precision, report.Evaluated, report.Hits,
	), nil
}
