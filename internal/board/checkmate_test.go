package board

import "testing"

func TestGameEnd(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		inCheck   bool
		checkmate bool
		stalemate bool
	}{
		// White rook on a8, black king boxed in by its own pawns.
		{"back rank mate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", true, true, false},
		// The king can take the checking rook.
		{"king takes rook", "6Rk/8/8/8/8/8/8/K7 b - - 0 1", true, false, false},
		{"fools mate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", true, true, false},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", false, false, true},
		{"startpos", StartFEN, false, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatal("Error parsing FEN:", err)
			}
			if got := pos.InCheck(); got != tc.inCheck {
				t.Errorf("InCheck() = %v, want %v", got, tc.inCheck)
			}
			if got := pos.IsCheckmate(); got != tc.checkmate {
				t.Errorf("IsCheckmate() = %v, want %v", got, tc.checkmate)
			}
			if got := !pos.InCheck() && !pos.HasLegalMoves(); got != tc.stalemate {
				t.Errorf("stalemate = %v, want %v", got, tc.stalemate)
			}
			if got := pos.HasLegalMoves(); got == (tc.checkmate || tc.stalemate) {
				t.Errorf("HasLegalMoves() = %v", got)
			}
		})
	}
}
