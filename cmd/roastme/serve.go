package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	tgbot "github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/edgard/roastme/internal/auth"
	"github.com/edgard/roastme/internal/config"
	"github.com/edgard/roastme/internal/corpus"
	"github.com/edgard/roastme/internal/database"
	"github.com/edgard/roastme/internal/llm"
	"github.com/edgard/roastme/internal/logger"
	"github.com/edgard/roastme/internal/metrics"
	"github.com/edgard/roastme/internal/ratelimit"
	"github.com/edgard/roastme/internal/roast"
	"github.com/edgard/roastme/internal/server"
	"github.com/edgard/roastme/internal/server/handlers"
	"github.com/edgard/roastme/internal/server/tasks"
	"github.com/edgard/roastme/internal/telegram"
)

// runServe wires every component and blocks until ctx is cancelled or a
// component fails.
func runServe(ctx context.Context, configPath string) error {
	startedAt := time.Now()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON, "version", version)

	if logger.ParseLevel(cfg.Logger.Level) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		log.Error("Failed to register metrics", "error", err)
		return err
	}

	credentials, err := buildCredentials(ctx, cfg, recorder, log)
	if err != nil {
		log.Error("Failed to initialize generative backends", "error", err)
		return err
	}
	if len(credentials) == 0 {
		log.Warn("No generation credentials configured, roasts will come from the corpus and local bank")
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	resolver := auth.NewResolver(tokens, store, log)
	roasts := corpus.New(store, cfg.Corpus.CountCacheTTL, log)

	svc := roast.NewService(
		roast.Config{Timeout: cfg.Generation.Timeout, MinAcceptLength: cfg.Generation.MinAcceptLength},
		credentials, resolver, roasts, log,
		roast.WithObserver(recorder),
	)

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Roaster:   svc,
		Tokens:    tokens,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		StartedAt: startedAt,
		Version:   version,
	}

	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error("Error closing redis client", "error", err)
			}
		}()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("Redis is unreachable, rate limiting fails open until it recovers", "addr", cfg.RateLimit.RedisAddr, "error", err)
		}
		hDeps.Limiter = ratelimit.New(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window, log)
		log.Info("Rate limiting enabled", "requests", cfg.RateLimit.Requests, "window", cfg.RateLimit.Window)
	}

	var tg *tgbot.Bot
	if cfg.Telegram.Enabled() {
		tg, err = telegram.NewTelegramBot(cfg.Telegram.Token, log)
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return err
		}

		cmdHandlers := telegram.RegisterAllCommands(telegram.HandlerDeps{
			Logger:      log,
			Roaster:     svc,
			Corpus:      roasts,
			AdminChatID: cfg.Telegram.AdminChatID,
		})
		if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
			log.Error("Failed to register Telegram handlers", "error", err)
			return err
		}

		hDeps.Notifier = telegram.NewNotifier(tg, cfg.Telegram.AdminChatID, log)
		log.Info("Telegram bot enabled", "admin_chat_id", cfg.Telegram.AdminChatID)
	}

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Corpus: roasts,
		Gauge:  recorder,
	})
	sched, err := server.NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Error("Error stopping scheduler", "error", err)
		}
	}()

	if n, err := roasts.Refresh(ctx); err != nil {
		log.Warn("Failed to read corpus size", "error", err)
	} else {
		recorder.SetCorpusSize(n)
		log.Info("Corpus loaded", "roasts", n)
	}

	srv := server.NewServer(log, cfg.Server, handlers.NewRouter(hDeps), sched, tg)

	log.Info("Starting RoastMe...", "addr", cfg.Server.Addr())
	runErr := srv.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Server stopped due to error", "error", runErr)
		return runErr
	}

	log.Info("Server stopped gracefully.")
	return nil
}

// buildCredentials creates one breaker-guarded backend per configured
// credential, in fallback order.
func buildCredentials(ctx context.Context, cfg *config.Config, recorder *metrics.Recorder, log *slog.Logger) ([]roast.Credential, error) {
	breakerCfg := llm.BreakerConfig{
		MaxFailures:   cfg.Breaker.MaxFailures,
		OpenTimeout:   cfg.Breaker.OpenTimeout,
		OnStateChange: recorder.BreakerStateChanged,
	}

	creds := cfg.Credentials()
	out := make([]roast.Credential, 0, len(creds))
	for _, c := range creds {
		var backend llm.Backend
		switch c.Provider {
		case config.ProviderGemini:
			gb, err := llm.NewGeminiBackend(ctx, llm.GeminiConfig{
				APIKey:      c.APIKey,
				Temperature: cfg.Generation.Temperature,
				MaxTokens:   cfg.Generation.MaxTokens,
			}, log)
			if err != nil {
				return nil, fmt.Errorf("credential %s: %w", c.Name, err)
			}
			backend = gb
		default:
			ob, err := llm.NewOpenAIBackend(llm.OpenAIConfig{
				APIKey:      c.APIKey,
				BaseURL:     cfg.Generation.Endpoint,
				Temperature: cfg.Generation.Temperature,
				MaxTokens:   cfg.Generation.MaxTokens,
			}, log)
			if err != nil {
				return nil, fmt.Errorf("credential %s: %w", c.Name, err)
			}
			backend = ob
		}

		out = append(out, roast.Credential{
			Name:    c.Name,
			Model:   c.Model,
			Backend: llm.NewBreaker(c.Name, backend, breakerCfg, log),
		})
		log.Info("Generation credential configured", "credential", c.Name, "provider", c.Provider, "model", c.Model)
	}
	return out, nil
}
