package engine

import (
	"sync/atomic"

	"github.com/hailam/chessorder/internal/board"
)

// Worker owns the per-thread search state: its position copy, killers, one
// move ordering per ply and its counters. Only the transposition table is
// shared between workers.
type Worker struct {
	pos       *board.Position
	killers   KillerTable
	orderings [MaxPly]MoveOrdering
	pv        PVTable
	stats     Stats

	rootHint  board.Move
	nodeLimit uint64

	tt       *TranspositionTable
	stopFlag *atomic.Bool
}

// NewWorker creates a search worker.
func NewWorker(tt *TranspositionTable, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		tt:       tt,
		stopFlag: stopFlag,
	}
}

// Reset clears the counters for a new search.
func (w *Worker) Reset() {
	w.stats = Stats{}
}

// InitSearch gives the worker its own copy of pos to search.
func (w *Worker) InitSearch(pos *board.Position) {
	w.pos = pos.Copy()
	w.pv = PVTable{}
}

// SearchDepth searches the root position to depth and returns the best move
// and its score. The move is NoMove if the root has no legal moves.
func (w *Worker) SearchDepth(depth, alpha, beta int) (board.Move, int) {
	score := w.negamax(depth, 0, alpha, beta)

	var bestMove board.Move
	if w.pv.length[0] > 0 {
		bestMove = w.pv.moves[0][0]
	}
	return bestMove, score
}

// GetPV returns the principal variation from the last search.
func (w *Worker) GetPV() []board.Move {
	pv := make([]board.Move, w.pv.length[0])
	copy(pv, w.pv.moves[0][:w.pv.length[0]])
	return pv
}

func (w *Worker) evaluate() int {
	return Evaluate(w.pos)
}

// checkLimits raises the stop flag once the node budget is spent and
// reports whether the search should unwind.
func (w *Worker) checkLimits() bool {
	nodes := w.stats.TotalNodes()
	if w.nodeLimit > 0 && nodes >= w.nodeLimit {
		w.stopFlag.Store(true)
		return true
	}
	return nodes&1023 == 0 && w.stopFlag.Load()
}

// hashMove returns the move to try first at this node, or NoMove.
//
// Below the root a table move is trusted: Probe matched the full key and only
// moves generated in that position are stored, so checking it would cost the
// full generation the ordering defers. At the root, where an external hint or
// a move from an earlier game may show up, the move is checked and dropped if
// it is not legal.
func (w *Worker) hashMove(entry TTEntry, found bool, ply int) board.Move {
	m := board.NoMove
	if found {
		m = entry.Move
	}
	if ply > 0 {
		return m
	}
	if m == board.NoMove {
		m = w.rootHint
	}
	if m == board.NoMove {
		return m
	}
	w.stats.HashMoveChecks++
	if !w.pos.IsLegal(m) {
		w.stats.IllegalHashMoves++
		return board.NoMove
	}
	return m
}

// killer returns the killer to offer at ply. The older slot stands in when the
// newer one is the hash move, which the ordering already returns first.
func (w *Worker) killer(ply int, hashMove board.Move) board.Move {
	if k := w.killers.Primary(ply); k != hashMove {
		return k
	}
	return w.killers.Secondary(ply)
}

// negamax implements the negamax algorithm with alpha-beta pruning.
func (w *Worker) negamax(depth, ply int, alpha, beta int) int {
	if ply >= MaxPly-1 {
		return w.evaluate()
	}
	if w.checkLimits() {
		return 0
	}
	w.pv.length[ply] = ply
	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	w.stats.Nodes++

	hash := w.pos.Hash()
	entry, found := w.tt.Probe(hash)
	if found && ply > 0 && int(entry.Depth) >= depth {
		score := AdjustScoreFromTT(int(entry.Score), ply)
		switch {
		case entry.Flag == TTExact,
			entry.Flag == TTLowerBound && score >= beta,
			entry.Flag == TTUpperBound && score <= alpha:
			return score
		}
	}

	hashMove := w.hashMove(entry, found, ply)
	killer := w.killer(ply, hashMove)
	inCheck := w.pos.InCheck()

	o := &w.orderings[ply]
	o.Reset(w.pos, hashMove, killer)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	movesSearched := 0

	for {
		move, ok := o.Next()
		if !ok {
			break
		}
		stage := o.Stage()
		if stage == StagePrepareCaptures {
			stage = StageHashMove
		}
		quiet := !move.IsPromotion() && !w.pos.IsCapture(move)

		undo := w.pos.MakeMove(move)
		movesSearched++
		score := -w.negamax(depth-1, ply+1, -beta, -alpha)
		w.pos.UnmakeMove(undo)

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact

				w.pv.moves[ply][ply] = move
				for j := ply + 1; j < w.pv.length[ply+1]; j++ {
					w.pv.moves[ply][j] = w.pv.moves[ply+1][j]
				}
				w.pv.length[ply] = w.pv.length[ply+1]
			}
		}

		if score >= beta {
			w.stats.recordCutoff(movesSearched, stage, move, hashMove, killer)
			if quiet {
				w.killers.Store(ply, move)
			}
			w.tt.Store(hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, move)
			return score
		}
	}

	if movesSearched == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	w.tt.Store(hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)
	return bestScore
}

// quiescence searches captures until the position is quiet. It draws only
// from the capture stage of a hint-free ordering and stops at the first move
// from a later stage.
func (w *Worker) quiescence(ply int, alpha, beta int) int {
	if ply >= MaxPly-1 {
		return w.evaluate()
	}
	if w.checkLimits() {
		return 0
	}

	w.stats.QNodes++

	standPat := w.evaluate()
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	o := &w.orderings[ply]
	o.Reset(w.pos, board.NoMove, board.NoMove)
	for {
		move, ok := o.Next()
		if !ok || o.Stage() > StageCaptures {
			break
		}

		undo := w.pos.MakeMove(move)
		score := -w.quiescence(ply+1, -beta, -alpha)
		w.pos.UnmakeMove(undo)

		if w.stopFlag.Load() {
			return 0
		}
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}
