package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/hailam/chessorder/internal/engine"
	"github.com/hailam/chessorder/internal/logx"
	"github.com/hailam/chessorder/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	hintDB     = flag.String("hintdb", "", "badger directory for persistent hash-move hints")
	logLevel   = flag.String("log-level", "info", "log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	// stdout carries the protocol, so diagnostics go to stderr.
	logger, err := logx.NewLogger(os.Stderr, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("create-cpu-profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Fatal().Err(err).Msg("start-cpu-profile")
		}
		defer pprof.StopCPUProfile()
		logger.Info().Str("path", profilePath).Msg("cpu-profiling")
	}

	eng := engine.NewEngine(*hashMB)
	protocol := uci.New(eng, os.Stdout)
	protocol.SetLogger(logger)
	if *hintDB != "" {
		if err := protocol.SetHintDB(*hintDB); err != nil {
			logger.Fatal().Err(err).Str("dir", *hintDB).Msg("open-hintdb")
		}
	}

	if err := protocol.Run(os.Stdin); err != nil {
		logger.Error().Err(err).Msg("read-input")
	}
	if err := protocol.Close(); err != nil {
		logger.Error().Err(err).Msg("close")
	}
}
