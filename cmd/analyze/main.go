// Command analyze runs a single position analysis and prints the summary
// and explanation.
//
//	analyze -fen "<fen>" [-move e4] [-level beginner] [-explain=false] [-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freeeve/chesstutor/internal/analysis"
	"github.com/freeeve/chesstutor/internal/board"
	"github.com/freeeve/chesstutor/internal/config"
	"github.com/freeeve/chesstutor/internal/eco"
	"github.com/freeeve/chesstutor/internal/engine"
	"github.com/freeeve/chesstutor/internal/explain"
	"github.com/freeeve/chesstutor/internal/httpapi"
	"github.com/freeeve/chesstutor/internal/logx"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func main() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var (
		fen       = fs.String("fen", startFEN, "position to analyse")
		move      = fs.String("move", "", "played move to classify (SAN or UCI)")
		level     = fs.String("level", "beginner", "explanation level (beginner, intermediate, advanced)")
		doExplain = fs.Bool("explain", true, "ask the language model for an explanation")
		asJSON    = fs.Bool("json", false, "print the structured result as JSON")
	)
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logx.New(logx.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: os.Stderr})

	session := engine.NewSession(engine.SessionConfig{
		Locator: engine.Locator{Configured: cfg.Engine.Path},
		Threads: cfg.Engine.Threads,
		HashMB:  cfg.Engine.HashMB,
		Timeout: cfg.Engine.Timeout,
		Logger:  logger.With().Str("component", "engine").Logger(),
	})

	var book analysis.OpeningBook
	if cfg.ECO.Dir != "" {
		ecoDB := eco.NewDatabase()
		if err := ecoDB.LoadDir(cfg.ECO.Dir); err != nil {
			logger.Warn().Err(err).Str("dir", cfg.ECO.Dir).Msg("failed to load ECO database")
		} else {
			book = ecoDB
		}
	}

	thresholds, _ := cfg.Classifier.Resolve()
	analyzer := analysis.NewAnalyzer(analysis.Config{
		DefaultDepth:   cfg.Engine.DefaultDepth,
		MaxDepth:       cfg.Engine.MaxDepth,
		DefaultMultiPV: cfg.Engine.DefaultMultiPV,
		MaxMultiPV:     cfg.Engine.MaxMultiPV,
		Thresholds:     thresholds,
		Logger:         logger.With().Str("component", "analysis").Logger(),
	}, board.NewChessAdapter(), session, book)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := analyzer.Analyze(ctx, analysis.Request{FEN: *fen, PlayedMove: *move})
	if err != nil {
		logger.Error().Err(err).Msg("analysis failed")
		os.Exit(1)
	}
	summary := analysis.FormatSummary(res)

	var ex explain.Explanation
	if *doExplain {
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
		ex = pipeline.Explain(ctx, explain.Request{Summary: summary, Level: explain.ParseLevel(*level)})
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(httpapi.AnalyzeResponse{
			Summary:                summary,
			Explanation:            ex.Text,
			ExplanationPlaceholder: ex.Placeholder,
			Analysis:               httpapi.ToAnalysisResponse(res),
		})
		return
	}

	fmt.Println(summary)
	if ex.Text != "" {
		fmt.Println()
		fmt.Println(ex.Text)
	}
}
