package engine

import "github.com/hailam/chessorder/internal/board"

// KillerTable remembers, per ply, the two most recent quiet moves that caused
// a beta cutoff. Killers are only hints: a stored move need not be legal in the
// next position searched at the same ply.
type KillerTable struct {
	moves [MaxPly][2]board.Move
}

// Store records m as the newest killer at ply. Storing the current primary
// killer again does nothing.
func (k *KillerTable) Store(ply int, m board.Move) {
	if ply < 0 || ply >= MaxPly || m == board.NoMove {
		return
	}
	if k.moves[ply][0] == m {
		return
	}
	k.moves[ply][1] = k.moves[ply][0]
	k.moves[ply][0] = m
}

// Primary returns the newest killer at ply, or NoMove.
func (k *KillerTable) Primary(ply int) board.Move {
	if ply < 0 || ply >= MaxPly {
		return board.NoMove
	}
	return k.moves[ply][0]
}

// Secondary returns the older killer at ply, or NoMove.
func (k *KillerTable) Secondary(ply int) board.Move {
	if ply < 0 || ply >= MaxPly {
		return board.NoMove
	}
	return k.moves[ply][1]
}

// Clear forgets all killers.
func (k *KillerTable) Clear() {
	k.moves = [MaxPly][2]board.Move{}
}
