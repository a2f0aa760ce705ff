package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-bridge/internal/auth"
	"voice-bridge/internal/config"
	"voice-bridge/internal/dialogue"
	"voice-bridge/internal/httpapi"
	"voice-bridge/internal/ivr"
	"voice-bridge/internal/journal"
	"voice-bridge/internal/outbound"
	"voice-bridge/internal/session"
	"voice-bridge/internal/telephony"
	"voice-bridge/pkg/logger"
	"voice-bridge/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	journalMemoryEntries = 10000
	outboundGuardPrefix  = "voicebridge:outbound:"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Session registry is per process; it is the only call state.
	registry := session.NewMemoryRegistry(session.Options{
		TTL:             cfg.Sessions.TTL,
		MaxEntries:      cfg.Sessions.MaxEntries,
		CleanupInterval: cfg.Sessions.CleanupInterval,
	})
	defer registry.Close()

	engineClient, err := dialogue.NewTeneoClient(cfg.Engine.URL, dialogue.Options{Timeout: cfg.Engine.Timeout})
	if err != nil {
		log.Error("dialogue client init failed", "err", err)
		os.Exit(1)
	}

	var repo journal.Repository = journal.NewMemoryRepo(journalMemoryEntries)
	if cfg.PostgresEnabled() {
		db, err := openJournalDB(rootCtx, cfg)
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := journal.NewPostgresRepo(db)
		if err := pg.EnsureSchema(rootCtx); err != nil {
			log.Error("journal schema init failed", "err", err)
			os.Exit(1)
		}
		repo = pg
	}

	turns := ivr.NewEngine(registry, engineClient, log,
		ivr.WithJournal(journal.NewService(repo)),
		ivr.WithFallbackMessage(cfg.Voice.FallbackMessage),
	)

	var guard outbound.Guard
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer closeRedis(rdb)
		g, err := utils.NewGuard(rdb, outboundGuardPrefix, 1, cfg.Outbound.GuardTTL)
		if err != nil {
			log.Error("outbound guard init failed", "err", err)
			os.Exit(1)
		}
		guard = g
	}

	var dialer telephony.Dialer
	if cfg.OutboundEnabled() {
		dialer = telephony.NewTwilioDialer(cfg.Twilio)
	} else {
		log.Warn("twilio credentials not set, outbound calls disabled")
	}
	dispatcher := outbound.NewDispatcher(dialer, guard, log)

	var dispatchAuth *auth.Manager
	if cfg.Dispatch.JWTSecret != "" {
		dispatchAuth, err = auth.NewManager(cfg.Dispatch)
		if err != nil {
			log.Error("auth init failed", "err", err)
			os.Exit(1)
		}
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, httpapi.Handlers{
		Turns:    turns,
		Outbound: dispatcher,
		Voice: telephony.VoiceOptions{
			Language: cfg.Voice.Language,
			Voice:    cfg.Voice.Voice,
		},
		PublicBaseURL: cfg.App.PublicBaseURL,
	}, auth.RequireDispatchToken(dispatchAuth))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("bridge listening", "addr", srv.Addr, "env", cfg.App.Env, "engine", cfg.Engine.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

func openJournalDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	return utils.OpenPostgres(ctx, utils.DriverPgx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		slog.Warn("redis close failed", "err", err)
	}
}
