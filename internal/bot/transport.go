package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookHandler returns the HTTP handler Telegram posts updates to.
func WebhookHandler(h *Handler, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			logger.Error("bad webhook payload", "err", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	}
}

// RunPolling consumes updates via long polling until ctx is canceled.
// Used when no webhook URL is configured, typically in development.
func RunPolling(ctx context.Context, api *tgbotapi.BotAPI, h *Handler, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := api.GetUpdatesChan(cfg)

	logger.Info("long polling started")
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			logger.Info("long polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, update)
		}
	}
}
