// Command eventgate serves the telemetry event admission-control
// pipeline: signed event ingestion into a bounded on-disk log, plus a
// side-effect-free policy simulator.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opencode-ops/eventgate/pkg/api"
	"github.com/opencode-ops/eventgate/pkg/config"
	"github.com/opencode-ops/eventgate/pkg/pipeline"
	"github.com/opencode-ops/eventgate/pkg/signing"
	"github.com/opencode-ops/eventgate/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration load failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	mode := cfg.DefaultMode()
	if !cfg.SigningEnabled() &&
		(mode == signing.ModeRequireSigned || mode == signing.ModeRequireValidSignature) {
		logger.Warn("signing mode requires signatures but no key is configured; caller signatures are trusted on presence",
			"signing_mode", mode)
	}

	st := store.NewFileStore(cfg.StorePath)
	p := pipeline.New(pipeline.Config{
		SigningKey:        cfg.SigningKey,
		SignerID:          cfg.SignerID,
		DefaultMode:       mode,
		ReplaySeedEnabled: cfg.ReplaySeedEnabled,
	}, st)

	svc := api.NewService(p, st)
	limiter := api.NewRateLimiter(20, 40)

	mux := http.NewServeMux()
	svc.Register(mux, limiter)

	handler := api.RequestID(api.RequestLogger(logger, mux))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("eventgate listening",
			"port", cfg.Port,
			"signing_mode", mode,
			"signing_enabled", cfg.SigningEnabled(),
			"store_path", cfg.StorePath,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("eventgate stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
