package engine

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessorder/internal/board"
)

// BenchPosition is one position of a bench run. BestMoves, if any, are the
// moves that count as solving it.
type BenchPosition struct {
	ID        string
	Position  *board.Position
	BestMoves []board.Move
}

// BenchOptions configures a bench run.
type BenchOptions struct {
	Depth   int    // iterative deepening depth per position, default 5
	Threads int    // parallel workers, default GOMAXPROCS
	Nodes   uint64 // node limit per position, 0 for none
}

// BenchResult is the outcome of searching one position.
type BenchResult struct {
	ID       string     `json:"id"`
	FEN      string     `json:"fen"`
	Hash     uint64     `json:"hash"`
	Move     board.Move `json:"-"`
	BestMove string     `json:"best_move"`
	Score    int        `json:"score"`
	Nodes    uint64     `json:"nodes"`
	Expected []string   `json:"expected,omitempty"` // SAN
	Solved   bool       `json:"solved"`
}

// BenchReport summarises a bench run.
type BenchReport struct {
	Name      string        `json:"name"`
	Depth     int           `json:"depth"`
	Threads   int           `json:"threads"`
	Positions int           `json:"positions"`
	Scored    int           `json:"scored"` // positions with expected moves
	Solved    int           `json:"solved"`
	Stats     Stats         `json:"stats"`
	Elapsed   time.Duration `json:"elapsed"`
	CreatedAt time.Time     `json:"created_at"`
	Results   []BenchResult `json:"results"`
}

// NodesPerSecond returns the search speed over the whole run.
func (r *BenchReport) NodesPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Stats.TotalNodes()) / r.Elapsed.Seconds()
}

// Bench searches every position to a fixed depth using opts.Threads workers.
// Each worker has its own Searcher and position copies; tt is shared. The run
// stops early with ctx's error if ctx is cancelled.
func Bench(ctx context.Context, tt *TranspositionTable, positions []BenchPosition, opts BenchOptions, logger zerolog.Logger) (*BenchReport, error) {
	if len(positions) == 0 {
		return nil, errors.New("bench: no positions")
	}
	if opts.Depth <= 0 {
		opts.Depth = 5
	}
	if opts.Threads <= 0 {
		opts.Threads = runtime.GOMAXPROCS(0)
	}
	opts.Threads = min(opts.Threads, len(positions))

	report := &BenchReport{
		Depth:     opts.Depth,
		Threads:   opts.Threads,
		Positions: len(positions),
		CreatedAt: time.Now(),
		Results:   make([]BenchResult, len(positions)),
	}

	tt.NewSearch()
	start := time.Now()

	var mu sync.Mutex
	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range positions {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for t := 0; t < opts.Threads; t++ {
		g.Go(func() error {
			s := NewSearcher(tt)
			s.SetNodeLimit(opts.Nodes)
			stop := context.AfterFunc(ctx, s.Stop)
			defer stop()

			for i := range jobs {
				bp := positions[i]
				res, stats := benchPosition(s, bp, opts.Depth)
				if err := ctx.Err(); err != nil {
					return err
				}
				logger.Debug().
					Int("thread", t).
					Str("id", bp.ID).
					Str("bestmove", res.BestMove).
					Str("san", res.Move.ToSAN(bp.Position)).
					Bool("solved", res.Solved).
					Uint64("nodes", res.Nodes).
					Msg("bench-position")

				mu.Lock()
				report.Results[i] = res
				report.Stats.Add(stats)
				if len(res.Expected) > 0 {
					report.Scored++
					if res.Solved {
						report.Solved++
					}
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Elapsed = time.Since(start)

	logger.Info().
		Int("positions", report.Positions).
		Int("threads", report.Threads).
		Uint64("nodes", report.Stats.TotalNodes()).
		Float64("nps", report.NodesPerSecond()).
		Float64("first-move-cutoffs", report.Stats.FirstMoveCutoffRate()).
		Int("solved", report.Solved).
		Int("scored", report.Scored).
		Dur("elapsed", report.Elapsed).
		Msg("bench-done")
	return report, nil
}

// benchPosition runs iterative deepening on one position with s.
func benchPosition(s *Searcher, bp BenchPosition, depth int) (BenchResult, Stats) {
	s.Reset()
	s.ClearKillers()

	res := BenchResult{
		ID:   bp.ID,
		FEN:  bp.Position.ToFEN(),
		Hash: bp.Position.Hash(),
	}
	for d := 1; d <= depth; d++ {
		move, score := s.Search(bp.Position, d)
		if s.IsStopped() || move == board.NoMove {
			break
		}
		res.Move, res.Score = move, score
	}
	res.BestMove = res.Move.String()
	for _, m := range bp.BestMoves {
		res.Expected = append(res.Expected, m.ToSAN(bp.Position))
		if m == res.Move {
			res.Solved = true
		}
	}

	stats := s.Stats()
	res.Nodes = stats.TotalNodes()
	return res, stats
}
