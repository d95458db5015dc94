package engine

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chessorder/internal/board"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
	Stats    Stats
}

// SearchLimits specifies constraints on the search. Zero values mean no limit.
type SearchLimits struct {
	Depth    int
	Nodes    uint64
	MoveTime time.Duration
	Clock    Clock
	Infinite bool // search until stopped
}

// HintStore keeps root hash moves between runs. LoadHint returns an error
// when it has no move for the hash.
type HintStore interface {
	LoadHint(hash uint64) (board.Move, error)
	SaveHint(hash uint64, m board.Move) error
}

// Engine drives iterative deepening searches over a transposition table.
type Engine struct {
	searcher *Searcher
	tt       *TranspositionTable
	hints    HintStore
	logger   zerolog.Logger
	stats    Stats

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine with a transposition table of ttSizeMB megabytes.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	return &Engine{
		searcher: NewSearcher(tt),
		tt:       tt,
		logger:   zerolog.Nop(),
	}
}

// SetLogger sets the logger for search diagnostics.
func (e *Engine) SetLogger(logger zerolog.Logger) {
	e.logger = logger
}

// SetHintStore makes the engine read root hash moves from hints when its
// table has none, and record each search's best move there. nil disables it.
func (e *Engine) SetHintStore(hints HintStore) {
	e.hints = hints
}

// SetHashSize replaces the transposition table with one of sizeMB megabytes.
func (e *Engine) SetHashSize(sizeMB int) {
	e.tt = NewTranspositionTable(sizeMB)
	e.searcher = NewSearcher(e.tt)
}

// TT returns the engine's transposition table.
func (e *Engine) TT() *TranspositionTable {
	return e.tt
}

// Stats returns the counters of the last search.
func (e *Engine) Stats() Stats {
	return e.stats
}

// rootHint looks up a stored hash move for pos when the table has none.
func (e *Engine) rootHint(pos *board.Position) board.Move {
	if e.hints == nil || e.tt.HashMove(pos.Hash()) != board.NoMove {
		return board.NoMove
	}
	m, err := e.hints.LoadHint(pos.Hash())
	if err != nil {
		e.logger.Debug().Err(err).Str("fen", pos.ToFEN()).Msg("no-root-hint")
		return board.NoMove
	}
	return m
}

// RecordHint stores m as the hash move for pos in the hint store, if any.
func (e *Engine) RecordHint(pos *board.Position, m board.Move) error {
	if e.hints == nil || m == board.NoMove {
		return nil
	}
	return e.hints.SaveHint(pos.Hash(), m)
}

// SearchWithLimits finds the best move with specific search limits. It
// returns NoMove only if pos has no legal moves.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	e.searcher.Reset()
	e.tt.NewSearch()
	e.searcher.SetNodeLimit(limits.Nodes)
	e.searcher.SetRootHint(e.rootHint(pos))

	var tm TimeManager
	tm.Init(limits, pos.SideToMove())
	if d := tm.MaximumTime(); d > 0 {
		timer := time.AfterFunc(d, e.searcher.Stop)
		defer timer.Stop()
	}

	maxDepth := MaxPly - 1
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, maxDepth)
	}

	var bestMove board.Move
	for depth := 1; depth <= maxDepth; depth++ {
		move, score := e.searcher.Search(pos, depth)

		if e.searcher.IsStopped() {
			if bestMove == board.NoMove {
				bestMove = move
			}
			break
		}
		if move == board.NoMove {
			break
		}
		bestMove = move

		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Score:    score,
				Nodes:    e.searcher.Nodes(),
				Time:     tm.Elapsed(),
				PV:       e.searcher.GetPV(),
				HashFull: e.tt.HashFull(),
				Stats:    e.searcher.Stats(),
			})
		}

		if !limits.Infinite && (score > MateScore-MaxPly || score < -MateScore+MaxPly) {
			break
		}
		if tm.PastOptimum() {
			break
		}
	}

	// A search stopped during the first iteration may not have a move yet.
	if bestMove == board.NoMove {
		if legal := pos.LegalMoves(); len(legal) > 0 {
			bestMove = legal[0]
		}
	}

	e.stats = e.searcher.Stats()
	e.logger.Debug().
		Str("fen", pos.ToFEN()).
		Str("bestmove", bestMove.String()).
		Uint64("nodes", e.stats.TotalNodes()).
		Float64("first-move-cutoffs", e.stats.FirstMoveCutoffRate()).
		Uint64("illegal-hash-moves", e.stats.IllegalHashMoves).
		Dur("elapsed", tm.Elapsed()).
		Msg("search-done")

	if err := e.RecordHint(pos, bestMove); err != nil {
		e.logger.Warn().Err(err).Msg("record-hint")
	}
	return bestMove
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition table and the killers.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.ClearKillers()
}

// Perft counts the leaf nodes of the legal move tree of pos to depth.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return pos.Perft(depth)
}

// PerftDivide returns the perft count below each legal move of pos.
func (e *Engine) PerftDivide(pos *board.Position, depth int) map[board.Move]uint64 {
	counts := make(map[board.Move]uint64)
	if depth < 1 {
		return counts
	}
	for _, m := range pos.LegalMoves() {
		undo := pos.MakeMove(m)
		counts[m] = pos.Perft(depth - 1)
		pos.UnmakeMove(undo)
	}
	return counts
}

// FormatScore renders a score for a UCI info line ("cp 35" or "mate -2").
func FormatScore(score int) string {
	if score > MateScore-MaxPly {
		return "mate " + strconv.Itoa((MateScore-score+1)/2)
	}
	if score < -MateScore+MaxPly {
		return "mate " + strconv.Itoa(-(MateScore+score)/2)
	}
	return "cp " + strconv.Itoa(score)
}
