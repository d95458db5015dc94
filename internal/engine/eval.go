package engine

import "github.com/hailam/chessorder/internal/board"

// Evaluate returns the material balance from the side to move's point of view.
func Evaluate(pos *board.Position) int {
	score := pos.Material()
	if pos.SideToMove() == board.Black {
		return -score
	}
	return score
}
