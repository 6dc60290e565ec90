package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/neurobet/neurobet/internal/bot"
	"github.com/neurobet/neurobet/internal/config"
	"github.com/neurobet/neurobet/internal/evaluate"
	"github.com/neurobet/neurobet/internal/feed"
	"github.com/neurobet/neurobet/internal/football"
	"github.com/neurobet/neurobet/internal/ledger"
	"github.com/neurobet/neurobet/internal/memory"
	"github.com/neurobet/neurobet/internal/metrics"
	"github.com/neurobet/neurobet/internal/predict"
	"github.com/neurobet/neurobet/internal/sched"
	"github.com/neurobet/neurobet/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.Schema(context.Background()); err != nil {
			slog.Error("schema setup failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket activity feed ---
	hub := feed.NewHub()
	go hub.Run()
	notifier := feed.NewNotifier(hub)

	// --- Domain services ---
	ledgerSvc := ledger.NewService(st, notifier)
	memorySvc := memory.New(st, logger)

	var statsSource predict.StatsSource
	var resultSource evaluate.ResultSource
	if cfg.FootballAPIKey != "" {
		fc := football.NewClient(cfg.FootballAPIURL, cfg.FootballAPIKey,
			football.WithLogger(logger),
		)
		statsSource = fc
		resultSource = fc
		slog.Info("football data API enabled")
	} else {
		resultSource = noResults{}
		slog.Warn("FOOTBALL_API_KEY not set, predictions run in simulated mode")
	}

	predictor := predict.New(statsSource, st, logger)
	evaluator := evaluate.New(resultSource, st, logger)

	// --- Telegram ---
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		slog.Error("telegram auth failed", "err", err)
		os.Exit(1)
	}
	slog.Info("telegram bot authorized", "username", api.Self.UserName)

	handler := bot.New(api, ledgerSvc, predictor, evaluator, memorySvc, notifier, logger)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if cfg.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.WebhookURL)
		if err != nil {
			slog.Error("invalid webhook URL", "err", err)
			os.Exit(1)
		}
		if _, err := api.Request(wh); err != nil {
			slog.Error("webhook registration failed", "err", err)
			os.Exit(1)
		}
		slog.Info("webhook registered", "url", cfg.WebhookURL)
	} else {
		go bot.RunPolling(rootCtx, api, handler, logger)
	}

	// --- Background cycles ---
	runner := sched.NewRunner(logger)
	runner.Add(sched.JobFunc{JobName: "evaluation", Fn: func(ctx context.Context) error {
		report, err := evaluator.Run(ctx)
		if err != nil {
			return err
		}
		if report.Evaluated > 0 {
			metrics.ModelPrecision.Set(report.Precision)
		}
		return nil
	}}, cfg.EvalInterval)
	runner.Start(rootCtx)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"neurobet"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	// Telegram webhook ingress.
	r.Post("/webhook", bot.WebhookHandler(handler, logger))

	// WebSocket endpoint for the live activity feed.
	r.Get("/ws", hub.HandleWS)

	// --- Server ---
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("neurobet listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down neurobet...")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := runner.Stop(ctx); err != nil {
		slog.Error("scheduler shutdown error", "err", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("neurobet stopped")
}

// noResults keeps the evaluator runnable without a football API key; every
// cycle simply finds nothing to evaluate.
type noResults struct{}

func (noResults) FinishedMatches(ctx context.Context, limit int) ([]football.Result, error) {
	return nil, nil
}
