package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sixtylens/internal/auth"
	"sixtylens/internal/config"
	"sixtylens/internal/database"
	"sixtylens/internal/email"
	"sixtylens/internal/logging"
	redisx "sixtylens/internal/redis"
	"sixtylens/internal/server"
)

const (
	auditMaxLen     = 1000
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("log setup error: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var (
		users  auth.UserStore
		tokens auth.EmailTokenStore
	)
	switch cfg.Storage {
	case config.StorageMemory:
		mem := auth.NewMemoryStore()
		users, tokens = mem, mem
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		users, tokens = auth.NewUserRepository(db), auth.NewEmailTokenRepository(db)
	}

	var auditor auth.Auditor
	if cfg.RedisURL != "" {
		redisClient, err := redisx.New(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		auditor = &auth.AuditLogger{Redis: redisClient, MaxLen: auditMaxLen}
	}

	mailer, err := email.New(ctx, cfg.Email, logger)
	if err != nil {
		return err
	}

	svc := auth.NewService(auth.ServiceConfig{
		Users:         users,
		Tokens:        tokens,
		Hasher:        auth.NewBcryptHasher(),
		Codec:         auth.NewTokenCodec(cfg.Token.SecretKey),
		Notifier:      mailer,
		Auditor:       auditor,
		Logger:        logger,
		AccessTTL:     cfg.Token.AccessTokenTTL,
		RefreshTTL:    cfg.Token.RefreshTokenTTL,
		EmailTokenTTL: cfg.Token.EmailTokenTTL,
		FrontendURL:   cfg.FrontendURL,
	})
	api := server.NewServer(cfg, svc, logger)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          logging.StdLogger(logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "storage", cfg.Storage, "email_provider", cfg.Email.Provider)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
