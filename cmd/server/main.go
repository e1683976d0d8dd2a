package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dayanaadylkhanova/powgate/internal/adapter/inbox"
	"github.com/dayanaadylkhanova/powgate/internal/adapter/replay"
	"github.com/dayanaadylkhanova/powgate/internal/adapter/transport/rest"
	"github.com/dayanaadylkhanova/powgate/internal/app"
	"github.com/dayanaadylkhanova/powgate/internal/service"
	"github.com/dayanaadylkhanova/powgate/pkg/config"
	"github.com/dayanaadylkhanova/powgate/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	log := logger.NewJSON(logger.LevelFromEnv(cfg.LogLevel))
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	key, insecure, err := cfg.ResolveKey()
	if err != nil {
		log.Error("signing key rejected", slog.Any("err", err))
		os.Exit(1)
	}
	if insecure {
		log.Warn("INSECURE SIGNING KEY: challenges can be forged, set HMAC_KEY to a long random secret")
	}

	alg, err := service.ParseAlgorithm(cfg.PoWAlgorithm)
	if err != nil {
		log.Error("invalid algorithm", slog.Any("err", err))
		os.Exit(1)
	}
	opts := []service.Option{
		service.WithAlgorithm(alg),
		service.WithMaxNumber(cfg.PoWMaxNumber),
		service.WithTTL(cfg.PoWTTL),
	}

	issuer, err := service.NewIssuer(key, opts...)
	if err != nil {
		log.Error("issuer init failed", slog.Any("err", err))
		os.Exit(1)
	}

	if cfg.ReplayProtection {
		opts = append(opts, service.WithReplayGuard(replay.NewLRU(cfg.ReplayCacheSize, cfg.PoWTTL)))
		log.Info("replay protection enabled", "cache_size", cfg.ReplayCacheSize)
	}
	verifier, err := service.NewVerifier(key, opts...)
	if err != nil {
		log.Error("verifier init failed", slog.Any("err", err))
		os.Exit(1)
	}

	box, err := inbox.Open(context.Background(), cfg.InboxDSN)
	if err != nil {
		log.Error("inbox open failed", slog.Any("err", err))
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := rest.NewServer(log, cfg.ListenAddr, cfg.ShutdownWait, issuer, verifier, box)

	log.Info("starting",
		"algorithm", string(alg),
		"max_number", cfg.PoWMaxNumber,
		"ttl", cfg.PoWTTL.String(),
		"inbox", inboxKind(cfg.InboxDSN),
	)
	if err := app.New(srv, box).Run(); err != nil {
		log.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func inboxKind(dsn string) string {
	if dsn == "" {
		return "memory"
	}
	return "sqlite"
}
