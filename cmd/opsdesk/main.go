package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/opsdesk/internal/api"
	"github.com/MikeSquared-Agency/opsdesk/internal/auth"
	"github.com/MikeSquared-Agency/opsdesk/internal/chat"
	"github.com/MikeSquared-Agency/opsdesk/internal/config"
	"github.com/MikeSquared-Agency/opsdesk/internal/hermes"
	"github.com/MikeSquared-Agency/opsdesk/internal/metrics"
	"github.com/MikeSquared-Agency/opsdesk/internal/slack"
	"github.com/MikeSquared-Agency/opsdesk/internal/store"
	"github.com/MikeSquared-Agency/opsdesk/internal/webhook"
)

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], cfg.JWTSecret, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	setupLogging(cfg.LogLevel)

	slog.Info("opsdesk starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := api.Deps{Logger: slog.Default(), MaxUploadBytes: cfg.MaxFileBytes}

	// Database (optional, chat routes only without it)
	if cfg.DatabaseURL != "" {
		if cfg.DatabaseMigrate {
			if err := store.Migrate(cfg.DatabaseURL); err != nil {
				slog.Error("failed to migrate database", "error", err)
				os.Exit(1)
			}
			slog.Info("database migrated")
		}
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		deps.Directory = db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, dashboard routes disabled")
	}

	// Principal gate
	var verifiers auth.Any
	if cfg.APIToken != "" {
		verifiers = append(verifiers, auth.StaticToken(cfg.APIToken))
	}
	if cfg.JWTSecret != "" {
		verifiers = append(verifiers, auth.NewJWTVerifier(cfg.JWTSecret))
	}
	if len(verifiers) > 0 {
		deps.Auth = verifiers
	} else {
		slog.Warn("no API token or JWT secret, /api is unauthenticated")
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChat(reg)
	deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	notifiers := chat.Notifiers{chatMetrics}
	observers := chat.TurnObservers{chatMetrics}

	// NATS/Hermes (optional)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		events := hermes.NewChatEvents(hermesClient, slog.Default())
		notifiers = append(notifiers, events)
		observers = append(observers, events)
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Slack alerts (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		alerts := slack.NewAlerts(slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default()), 64, slog.Default())
		go alerts.Run(ctx)
		notifiers = append(notifiers, alerts)
		slog.Info("slack alerts ready", "channel", cfg.SlackChannel)
	}

	// Chat sessions
	if cfg.WebhookURL == "" {
		slog.Warn("CHAT_WEBHOOK_URL not set, chat turns will fail with a network error")
	}
	transport := webhook.NewClient(cfg.Webhook(), slog.Default())
	history := chat.NewMemoryHistory(cfg.HistoryRetention, cfg.HistoryMaxChats)
	chatCfg := cfg.Chat()
	sessions := chat.NewRegistry(func(resume string) *chat.Orchestrator {
		return chat.New(chat.Options{
			Config:        chatCfg,
			Transport:     transport,
			Logger:        slog.Default(),
			Notifier:      notifiers,
			Observer:      observers,
			History:       history,
			ResumeToken:   resume,
			AttachmentURL: api.AttachmentPath,
		})
	}, cfg.ChatSessionTTL, slog.Default())
	sessions.ReportTo(chatMetrics)
	go sessions.Run(ctx, time.Minute)
	deps.Sessions = sessions

	// HTTP API
	srv := api.NewServer(cfg.Port, deps)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("opsdesk ready", "port", cfg.Port, "webhook", cfg.WebhookURL != "")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
	slog.Info("opsdesk stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
