package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hailam/chessorder/internal/board"
	"github.com/hailam/chessorder/internal/engine"
	"github.com/hailam/chessorder/internal/logx"
	"github.com/hailam/chessorder/internal/storage"
	"github.com/hailam/chessorder/internal/suite"
)

func main() {
	var (
		suitePath    = flag.String("suite", "", "position suite (.epd, .fen, .txt, .pgn, optionally .zst); built-in suite if empty")
		depth        = flag.Int("depth", 6, "search depth per position")
		threads      = flag.Int("threads", 0, "parallel workers (0 = GOMAXPROCS)")
		nodes        = flag.Uint64("nodes", 0, "node limit per position (0 = unlimited)")
		hashMB       = flag.Int("hash", 64, "shared transposition table size in MB")
		maxPositions = flag.Int("max-positions", 0, "maximum positions to load (0 = all)")
		plyStride    = flag.Int("ply-stride", 8, "sample every n-th ply of PGN games")
		dbDir        = flag.String("db", "", "badger directory to store the report and hints (empty = don't store)")
		name         = flag.String("name", "", "report name (default: suite file name)")
		list         = flag.Bool("list", false, "list reports stored in -db and exit")
		logLevel     = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	logger, err := logx.NewLogger(os.Stdout, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var store *storage.Storage
	if *dbDir != "" {
		store, err = storage.Open(*dbDir)
		if err != nil {
			logger.Fatal().Err(err).Str("db", *dbDir).Msg("open-db")
		}
		defer store.Close()
	}

	if *list {
		if store == nil {
			logger.Fatal().Msg("-list needs -db")
		}
		names, err := store.ListReports()
		if err != nil {
			logger.Fatal().Err(err).Msg("list-reports")
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return
	}

	entries := suite.Default()
	reportName := "default"
	if *suitePath != "" {
		entries, err = suite.Load(*suitePath, suite.Options{
			PlyStride:    *plyStride,
			MaxPositions: *maxPositions,
			Logger:       &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("suite", *suitePath).Msg("load-suite")
		}
		reportName = *suitePath
	}
	if *name != "" {
		reportName = *name
	}
	logger.Info().
		Str("suite", reportName).
		Int("positions", len(entries)).
		Int("depth", *depth).
		Msg("starting-bench")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tt := engine.NewTranspositionTable(*hashMB)
	report, err := engine.Bench(ctx, tt, suite.BenchPositions(entries), engine.BenchOptions{
		Depth:   *depth,
		Threads: *threads,
		Nodes:   *nodes,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bench")
	}
	report.Name = reportName

	st := report.Stats
	logger.Info().
		Uint64("nodes", st.Nodes).
		Uint64("qnodes", st.QNodes).
		Uint64("cutoffs", st.BetaCutoffs).
		Float64("first-move-cutoffs", st.FirstMoveCutoffRate()).
		Float64("avg-cutoff-index", st.AverageCutoffIndex()).
		Uint64("hash-move-cutoffs", st.HashMoveCutoffs).
		Uint64("killer-cutoffs", st.KillerCutoffs).
		Uint64("illegal-hash-moves", st.IllegalHashMoves).
		Msg("ordering")
	for s := engine.StageHashMove; s <= engine.StageUnderpromotions; s++ {
		if s == engine.StagePrepareCaptures {
			continue
		}
		logger.Info().Str("stage", s.String()).Uint64("cutoffs", st.StageCutoffs[s]).Msg("stage-cutoffs")
	}

	if store == nil {
		return
	}
	if err := store.SaveReport(reportName, report); err != nil {
		logger.Fatal().Err(err).Msg("save-report")
	}
	hints := make(map[uint64]board.Move, len(report.Results))
	for _, r := range report.Results {
		if r.Move != board.NoMove {
			hints[r.Hash] = r.Move
		}
	}
	if err := store.SaveHints(hints); err != nil {
		logger.Fatal().Err(err).Msg("save-hints")
	}
	logger.Info().Str("name", reportName).Int("hints", len(hints)).Msg("report-saved")
}
