package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/freeeve/chesstutor/internal/analysis"
	"github.com/freeeve/chesstutor/internal/board"
	"github.com/freeeve/chesstutor/internal/config"
	"github.com/freeeve/chesstutor/internal/eco"
	"github.com/freeeve/chesstutor/internal/engine"
	"github.com/freeeve/chesstutor/internal/explain"
	"github.com/freeeve/chesstutor/internal/httpapi"
	"github.com/freeeve/chesstutor/internal/logx"
)

func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logx.New(logx.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	session := engine.NewSession(engine.SessionConfig{
		Locator: engine.Locator{Configured: cfg.Engine.Path},
		Threads: cfg.Engine.Threads,
		HashMB:  cfg.Engine.HashMB,
		Timeout: cfg.Engine.Timeout,
		Logger:  logger.With().Str("component", "engine").Logger(),
	})
	if path, err := session.Resolve(); err != nil {
		// Keep serving: requests get 503 until the engine is installed.
		logger.Warn().Err(err).Msg("engine not found")
	} else {
		logger.Info().Str("path", path).Msg("engine resolved")
	}

	// Load ECO opening database
	var book analysis.OpeningBook
	if cfg.ECO.Dir != "" {
		ecoDB := eco.NewDatabase()
		if err := ecoDB.LoadDir(cfg.ECO.Dir); err != nil {
			logger.Warn().Err(err).Str("dir", cfg.ECO.Dir).Msg("failed to load ECO database")
		} else {
			logger.Info().Int("openings", ecoDB.Count()).Int("skipped", ecoDB.Skipped()).Msg("ECO database loaded")
			book = ecoDB
		}
	}

	thresholds, _ := cfg.Classifier.Resolve() // checked by config.Load
	analyzer := analysis.NewAnalyzer(analysis.Config{
		DefaultDepth:   cfg.Engine.DefaultDepth,
		MaxDepth:       cfg.Engine.MaxDepth,
		DefaultMultiPV: cfg.Engine.DefaultMultiPV,
		MaxMultiPV:     cfg.Engine.MaxMultiPV,
		Thresholds:     thresholds,
		Logger:         logger.With().Str("component", "analysis").Logger(),
	}, board.NewChessAdapter(), session, book)

	pipeline := explain.NewMistralPipeline(explain.Config{
		APIKey:   cfg.LLM.APIKey,
		Language: cfg.LLM.Language,
		Timeout:  cfg.LLM.Timeout,
		Logger:   logger.With().Str("component", "explain").Logger(),
	}, explain.MistralConfig{
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	})
	if !pipeline.Configured() {
		logger.Info().Msg("no language model API key, explanations disabled")
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Logger:        logger.With().Str("component", "http").Logger(),
			MaxConcurrent: cfg.Server.MaxConcurrent,
			Engine:        session,
			LLMConfigured: pipeline.Configured(),
		}, analyzer, pipeline),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("api stopped")
	}
	logger.Info().Msg("shutdown complete")
}
