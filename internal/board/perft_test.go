package board

import "testing"

// perft walks the tree through MakeMove/UnmakeMove rather than the
// generator's own counting, so both paths are checked against each other.
func perft(p *Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	var nodes uint64
	for _, m := range p.LegalMoves() {
		undo := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(undo)
	}
	return nodes
}

func TestPerft(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		counts []uint64 // by depth, starting at 1
	}{
		{"startpos", StartFEN, []uint64{20, 400, 8902, 197281}},
		// Castling, en passant and promotions everywhere.
		{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -", []uint64{48, 2039, 97862}},
		// En passant edge cases.
		{"position3", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -", []uint64{14, 191, 2812, 43238}},
		{"position4", "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", []uint64{6, 264, 9467}},
		{"position5", "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8", []uint64{44, 1486, 62379}},
		{"position6", "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10", []uint64{46, 2079, 89890}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if err != nil {
				t.Fatalf("Failed to parse FEN: %v", err)
			}
			for i, want := range tc.counts {
				depth := i + 1
				if got := pos.Perft(depth); got != want {
					t.Errorf("Perft(%d) = %d, want %d", depth, got, want)
				}
				if depth <= 3 {
					if got := perft(pos, depth); got != want {
						t.Errorf("make/unmake perft(%d) = %d, want %d", depth, got, want)
					}
				}
			}
			if got := pos.ToFEN(); got != mustFEN(t, tc.fen) {
				t.Errorf("position changed by perft: %s", got)
			}
		})
	}
}

// TestPerftEnPassantPin tests the en passant horizontal pin edge case.
// Black pawn on e4 could capture en passant on d3, but that would expose the
// black king on a4 to the white rook on h4.
func TestPerftEnPassantPin(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	epCapture := NewMove(E4, D3)
	if pos.IsLegal(epCapture) {
		t.Errorf("en passant %v should be illegal (horizontal pin)", epCapture)
	}

	// Ka3, Ka5, Kb3, Kb4, Kb5, e3
	if got := pos.Perft(1); got != 6 {
		t.Errorf("Perft(1) = %d, want 6", got)
	}
}

func mustFEN(t *testing.T, fen string) string {
	t.Helper()
	pos, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}
	return pos.ToFEN()
}
