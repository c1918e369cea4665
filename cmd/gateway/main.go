package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/satfergana/bluebook-gateway/internal/auth"
	"github.com/satfergana/bluebook-gateway/internal/config"
	"github.com/satfergana/bluebook-gateway/internal/examservice"
	"github.com/satfergana/bluebook-gateway/internal/handler"
	"github.com/satfergana/bluebook-gateway/internal/logger"
	"github.com/satfergana/bluebook-gateway/internal/router"
	"github.com/satfergana/bluebook-gateway/internal/session"
	"github.com/satfergana/bluebook-gateway/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("exam_api", cfg.ExamAPIBaseURL).
		Msg("Starting Bluebook Gateway")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Upstream Exam Service Client ──────────────────────────────────
	examClient := examservice.NewClient(cfg, log)

	// ─── Session Registry ──────────────────────────────────────────────
	registry := session.NewRegistry(examClient, cfg.BreakSeconds, cfg.SessionIdleTTL, log)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go registry.Sweep(sweepCtx)

	// ─── Handlers ──────────────────────────────────────────────────────
	tokenValidator := auth.NewValidator(cfg.JWTSecret)
	handlers := &router.Handlers{
		Exam: handler.NewExamHandler(registry),
		WS:   handler.NewWSHandler(registry, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokenValidator, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the sweeper and cancel every live countdown so no expiration
	//    fires after teardown.
	sweepCancel()
	registry.CloseAll()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
