package engine

import (
	"sync/atomic"

	"github.com/hailam/chessorder/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Stats counts how well the move ordering served the search.
type Stats struct {
	Nodes  uint64 `json:"nodes"`  // main search nodes
	QNodes uint64 `json:"qnodes"` // quiescence nodes

	BetaCutoffs      uint64 `json:"beta_cutoffs"`
	FirstMoveCutoffs uint64 `json:"first_move_cutoffs"`
	HashMoveCutoffs  uint64 `json:"hash_move_cutoffs"`
	KillerCutoffs    uint64 `json:"killer_cutoffs"`
	CutoffMoveSum    uint64 `json:"cutoff_move_sum"` // sum of the 1-based index of each cutoff move

	// Cutoffs by the stage the cutoff move was drawn from.
	StageCutoffs [StageUnderpromotions + 1]uint64 `json:"stage_cutoffs"`

	// Root hash moves checked against the legal move list, and those of them
	// that were not legal and were dropped.
	HashMoveChecks   uint64 `json:"hash_move_checks"`
	IllegalHashMoves uint64 `json:"illegal_hash_moves"`
}

// TotalNodes returns main search and quiescence nodes together.
func (s Stats) TotalNodes() uint64 {
	return s.Nodes + s.QNodes
}

// FirstMoveCutoffRate returns the fraction of cutoffs produced by the first move.
func (s Stats) FirstMoveCutoffRate() float64 {
	if s.BetaCutoffs == 0 {
		return 0
	}
	return float64(s.FirstMoveCutoffs) / float64(s.BetaCutoffs)
}

// AverageCutoffIndex returns the mean 1-based position of the cutoff move.
func (s Stats) AverageCutoffIndex() float64 {
	if s.BetaCutoffs == 0 {
		return 0
	}
	return float64(s.CutoffMoveSum) / float64(s.BetaCutoffs)
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Nodes += other.Nodes
	s.QNodes += other.QNodes
	s.BetaCutoffs += other.BetaCutoffs
	s.FirstMoveCutoffs += other.FirstMoveCutoffs
	s.HashMoveCutoffs += other.HashMoveCutoffs
	s.KillerCutoffs += other.KillerCutoffs
	s.CutoffMoveSum += other.CutoffMoveSum
	for i := range s.StageCutoffs {
		s.StageCutoffs[i] += other.StageCutoffs[i]
	}
	s.HashMoveChecks += other.HashMoveChecks
	s.IllegalHashMoves += other.IllegalHashMoves
}

func (s *Stats) recordCutoff(index int, stage Stage, move, hashMove, killer board.Move) {
	s.BetaCutoffs++
	s.CutoffMoveSum += uint64(index)
	s.StageCutoffs[stage]++
	if index == 1 {
		s.FirstMoveCutoffs++
	}
	switch move {
	case hashMove:
		s.HashMoveCutoffs++
	case killer:
		s.KillerCutoffs++
	}
}

// Searcher performs a single-threaded alpha-beta search.
type Searcher struct {
	worker   *Worker
	stopFlag atomic.Bool
}

// NewSearcher creates a searcher using tt, which may be shared with other searchers.
func NewSearcher(tt *TranspositionTable) *Searcher {
	s := &Searcher{}
	s.worker = NewWorker(tt, &s.stopFlag)
	return s
}

// Stop signals the search to stop.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// Reset prepares the searcher for a new search. Killers are kept.
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.worker.Reset()
}

// ClearKillers forgets the killer moves of earlier searches.
func (s *Searcher) ClearKillers() {
	s.worker.killers.Clear()
}

// SetNodeLimit stops the search once n nodes have been visited; 0 disables the limit.
func (s *Searcher) SetNodeLimit(n uint64) {
	s.worker.nodeLimit = n
}

// SetRootHint supplies a hash move for the root used when the table has none.
func (s *Searcher) SetRootHint(m board.Move) {
	s.worker.rootHint = m
}

// Nodes returns the number of nodes searched, quiescence included.
func (s *Searcher) Nodes() uint64 {
	return s.worker.stats.TotalNodes()
}

// Stats returns the counters accumulated since the last Reset.
func (s *Searcher) Stats() Stats {
	return s.worker.stats
}

// Search performs a full-window search at the given depth.
func (s *Searcher) Search(pos *board.Position, depth int) (board.Move, int) {
	return s.SearchWithBounds(pos, depth, -Infinity, Infinity)
}

// SearchWithBounds performs a search with custom alpha/beta bounds.
func (s *Searcher) SearchWithBounds(pos *board.Position, depth, alpha, beta int) (board.Move, int) {
	s.worker.InitSearch(pos)
	return s.worker.SearchDepth(depth, alpha, beta)
}

// GetPV returns the principal variation from the last search.
func (s *Searcher) GetPV() []board.Move {
	return s.worker.GetPV()
}

// IsStopped returns true if the search has been stopped.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}
