package engine

import "github.com/hailam/chessorder/internal/board"

// Stage identifies which part of the ordering the next move comes from.
// Stages only ever advance.
type Stage uint8

const (
	StageHashMove Stage = iota
	StagePrepareCaptures
	StageCaptures
	StageQuiets
	StageUnderpromotions
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageHashMove:
		return "hashmove"
	case StagePrepareCaptures:
		return "prepare-captures"
	case StageCaptures:
		return "captures"
	case StageQuiets:
		return "quiets"
	case StageUnderpromotions:
		return "underpromotions"
	default:
		return "unknown"
	}
}

// Capture ordinals indexed by piece type. Knights and bishops share a value.
var pieceOrdinals = [6]int8{
	board.Pawn:   0,
	board.Knight: 1,
	board.Bishop: 1,
	board.Rook:   2,
	board.Queen:  3,
	board.King:   4,
}

// captureScore orders captures by most valuable victim, then least valuable attacker.
func captureScore(attacker, victim board.PieceType) int8 {
	return pieceOrdinals[victim]*4 - pieceOrdinals[attacker]
}

type scoredMove struct {
	move  board.Move
	score int8
}

// MoveOrdering produces the legal moves of a position one at a time:
// the hash move first, then the killer and captures by MVV-LVA, then quiet
// moves in generator order, then underpromotions.
//
// Moves are generated lazily. A node that cuts off on the hash move never
// generates at all, and a node that cuts off on a capture never expands its
// quiet moves. The position must not change while the ordering is in use.
//
// A promoting killer is not removed from its group and may be returned a
// second time in a later stage.
//
// With no legal moves the stream is empty whatever the killer, but a supplied
// hash move is still returned first.
type MoveOrdering struct {
	pos      *board.Position
	stage    Stage
	hashMove board.Move
	killer   board.Move

	captures        []scoredMove
	quiets          []board.PieceMovesIter
	underpromotions []board.Move
}

// NewMoveOrdering creates an ordering for pos. hashMove is NoMove when there
// is none. It is returned first without being checked, so callers must reject
// it before playing it if it may be illegal. killer may be any move; it is
// only used if it is legal in pos.
func NewMoveOrdering(pos *board.Position, hashMove, killer board.Move) *MoveOrdering {
	o := &MoveOrdering{
		captures:        make([]scoredMove, 0, 32),
		quiets:          make([]board.PieceMovesIter, 0, 16),
		underpromotions: make([]board.Move, 0, 8),
	}
	o.Reset(pos, hashMove, killer)
	return o
}

// Reset reinitializes the ordering for a new position, keeping its buffers.
func (o *MoveOrdering) Reset(pos *board.Position, hashMove, killer board.Move) {
	if killer == hashMove {
		killer = board.NoMove
	}
	o.pos = pos
	o.stage = StageHashMove
	if hashMove == board.NoMove {
		o.stage = StagePrepareCaptures
	}
	o.hashMove = hashMove
	o.killer = killer
	o.captures = o.captures[:0]
	o.quiets = o.quiets[:0]
	o.underpromotions = o.underpromotions[:0]
}

// Stage returns the stage the next call to Next starts in.
func (o *MoveOrdering) Stage() Stage {
	return o.stage
}

// Next returns the next move, or false once every legal move has been returned.
func (o *MoveOrdering) Next() (board.Move, bool) {
	switch o.stage {
	case StageHashMove:
		o.stage = StagePrepareCaptures
		return o.hashMove, true
	case StagePrepareCaptures:
		return o.prepareCaptures()
	case StageCaptures:
		return o.nextCapture()
	case StageQuiets:
		return o.nextQuiet()
	default:
		return o.nextUnderpromotion()
	}
}

// prepareCaptures runs the grouped generator once, queueing the killer and
// scored captures and keeping the quiet part of each group for later.
func (o *MoveOrdering) prepareCaptures() (board.Move, bool) {
	o.stage = StageCaptures
	theirs := o.pos.Colors(o.pos.SideToMove().Other())

	o.pos.GeneratePieceMoves(func(pm board.PieceMoves) bool {
		if pm.Contains(o.killer) {
			o.captures = append(o.captures, scoredMove{move: o.killer})
			if !o.killer.IsPromotion() {
				pm.To = pm.To.Clear(o.killer.To())
			}
		}

		quiets := pm
		quiets.To &^= theirs
		o.quiets = append(o.quiets, quiets.Iter())

		pm.To &= theirs
		for it := pm.Iter(); ; {
			mv, ok := it.Next()
			if !ok {
				break
			}
			if mv == o.hashMove {
				continue
			}
			if mv.IsUnderpromotion() {
				o.underpromotions = append(o.underpromotions, mv)
				continue
			}
			victim := o.pos.PieceTypeAt(mv.To())
			o.captures = append(o.captures, scoredMove{move: mv, score: captureScore(pm.Piece, victim)})
		}
		return true
	})

	return o.nextCapture()
}

// nextCapture removes and returns the best scored capture. Ties go to the
// earliest entry.
func (o *MoveOrdering) nextCapture() (board.Move, bool) {
	if len(o.captures) == 0 {
		o.stage = StageQuiets
		return o.nextQuiet()
	}

	best := 0
	for i := 1; i < len(o.captures); i++ {
		if o.captures[i].score > o.captures[best].score {
			best = i
		}
	}

	mv := o.captures[best].move
	last := len(o.captures) - 1
	o.captures[best] = o.captures[last]
	o.captures = o.captures[:last]
	return mv, true
}

func (o *MoveOrdering) nextQuiet() (board.Move, bool) {
	for len(o.quiets) > 0 {
		it := &o.quiets[len(o.quiets)-1]
		mv, ok := it.Next()
		if !ok {
			o.quiets = o.quiets[:len(o.quiets)-1]
			continue
		}
		if mv == o.hashMove {
			continue
		}
		if mv.IsUnderpromotion() {
			o.underpromotions = append(o.underpromotions, mv)
			continue
		}
		return mv, true
	}

	o.stage = StageUnderpromotions
	return o.nextUnderpromotion()
}

func (o *MoveOrdering) nextUnderpromotion() (board.Move, bool) {
	n := len(o.underpromotions)
	if n == 0 {
		return board.NoMove, false
	}
	mv := o.underpromotions[n-1]
	o.underpromotions = o.underpromotions[:n-1]
	return mv, true
}
