// Package suite loads test positions for benches: EPD and FEN lists, plain or
// zstd-compressed, and positions sampled from PGN games.
package suite

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/freeeve/pgn/v3"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/hailam/chessorder/internal/board"
	"github.com/hailam/chessorder/internal/engine"
)

// ErrUnsupportedFormat is returned by Load for files it cannot read.
var ErrUnsupportedFormat = errors.New("unsupported suite format")

// Entry is one position of a suite.
type Entry struct {
	ID        string
	FEN       string
	BestMoves []string // EPD "bm" operands, in SAN
	Position  *board.Position
}

// Options controls Load. Zero values mean defaults.
type Options struct {
	PlyStride    int // sample every n-th ply of a PGN game, default 8
	MaxPositions int // stop after this many positions, 0 for all
	Logger       *zerolog.Logger
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Load reads a suite from path. The format follows the extension: .epd, .fen
// and .txt are position lists, .pgn holds games, and a trailing .zst means
// the file is zstd-compressed.
func Load(path string, opts Options) ([]Entry, error) {
	name := strings.ToLower(filepath.Base(path))
	source := strings.TrimSuffix(name, ".zst")
	source = strings.TrimSuffix(source, filepath.Ext(source))

	switch {
	case strings.HasSuffix(name, ".pgn"), strings.HasSuffix(name, ".pgn.zst"):
		return loadPGN(path, source, opts)
	case strings.HasSuffix(name, ".zst"):
		return loadEPD(path, source, true, opts)
	case strings.HasSuffix(name, ".epd"), strings.HasSuffix(name, ".fen"), strings.HasSuffix(name, ".txt"):
		return loadEPD(path, source, false, opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

func loadEPD(path, source string, compressed bool, opts Options) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	entries, err := readEPD(r, source, opts.MaxPositions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// ReadEPD reads one position per line. A line holds a FEN, with or without
// the move counters, optionally followed by EPD operations such as
// `bm Nf3; id "name";`. Blank lines and lines starting with # are skipped.
func ReadEPD(r io.Reader) ([]Entry, error) {
	return readEPD(r, "epd", 0)
}

func readEPD(r io.Reader, source string, limit int) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		e, err := parseEPDLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if e.ID == "" {
			e.ID = source + ":" + strconv.Itoa(lineNo)
		}
		entries = append(entries, e)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseEPDLine(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Entry{}, fmt.Errorf("%w: %q", board.ErrInvalidFEN, line)
	}

	fenFields := fields[:4]
	ops := fields[4:]
	if len(fields) >= 6 && isNumber(fields[4]) && isNumber(fields[5]) {
		fenFields = fields[:6]
		ops = fields[6:]
	}
	fen := strings.Join(fenFields, " ")

	pos, err := board.ParseFEN(fen)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{FEN: pos.ToFEN(), Position: pos}
	for _, op := range strings.Split(strings.Join(ops, " "), ";") {
		opFields := strings.Fields(op)
		if len(opFields) == 0 {
			continue
		}
		switch opFields[0] {
		case "bm":
			e.BestMoves = append(e.BestMoves, opFields[1:]...)
		case "id":
			e.ID = strings.Trim(strings.Join(opFields[1:], " "), `"`)
		}
	}
	return e, nil
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// loadPGN samples positions from every game in path, before every
// PlyStride-th move. The initial position of a game is not sampled and a
// position already taken from an earlier game is skipped. Games that set up
// their own start position are skipped.
func loadPGN(path, source string, opts Options) ([]Entry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	stride := opts.PlyStride
	if stride <= 0 {
		stride = 8
	}
	log := opts.logger()

	var entries []Entry
	seen := make(map[uint64]bool)
	parser := pgn.Games(path)
	gameNo := 0
	stopped := false

gameLoop:
	for game := range parser.Games {
		gameNo++

		if fen := game.Tags["FEN"]; fen != "" {
			log.Warn().Int("game", gameNo).Str("fen", fen).Msg("skip-game-custom-start")
			continue
		}

		gs := pgn.NewStartingPosition()

		for ply, mv := range game.Moves {
			if ply > 0 && ply%stride == 0 {
				pos, err := board.ParseFEN(gs.ToFEN())
				if err != nil {
					log.Warn().Err(err).Int("game", gameNo).Int("ply", ply).Msg("skip-position")
					break
				}
				if !seen[pos.Hash()] {
					seen[pos.Hash()] = true
					entries = append(entries, Entry{
						ID:       fmt.Sprintf("%s:%d:%d", source, gameNo, ply),
						FEN:      pos.ToFEN(),
						Position: pos,
					})
					if opts.MaxPositions > 0 && len(entries) >= opts.MaxPositions {
						parser.Stop()
						stopped = true
						break gameLoop
					}
				}
			}
			if err := pgn.ApplyMove(gs, mv); err != nil {
				log.Warn().Err(err).Int("game", gameNo).Int("ply", ply).Msg("skip-rest-of-game")
				break
			}
		}
	}

	if err := parser.Err(); err != nil && !stopped {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("games", gameNo).Int("positions", len(entries)).Msg("pgn-loaded")
	return entries, nil
}

// Default returns the built-in suite: the start position and the usual perft
// test positions.
func Default() []Entry {
	entries := make([]Entry, 0, len(defaultSuite))
	for _, d := range defaultSuite {
		pos, err := board.ParseFEN(d.fen)
		if err != nil {
			panic(fmt.Sprintf("suite: bad built-in position %s: %v", d.id, err))
		}
		entries = append(entries, Entry{ID: d.id, FEN: d.fen, Position: pos})
	}
	return entries
}

var defaultSuite = []struct{ id, fen string }{
	{"startpos", board.StartFEN},
	{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"},
	{"perft-3", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1"},
	{"perft-4", "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1"},
	{"perft-5", "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8"},
	{"perft-6", "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10"},
}

// BenchPositions converts entries for engine.Bench. Each gets its own copy of
// the position. Best moves that are not legal SAN in their position are dropped.
func BenchPositions(entries []Entry) []engine.BenchPosition {
	positions := make([]engine.BenchPosition, len(entries))
	for i, e := range entries {
		bp := engine.BenchPosition{ID: e.ID, Position: e.Position.Copy()}
		for _, san := range e.BestMoves {
			if m, err := board.ParseSAN(san, e.Position); err == nil {
				bp.BestMoves = append(bp.BestMoves, m)
			}
		}
		positions[i] = bp
	}
	return positions
}
