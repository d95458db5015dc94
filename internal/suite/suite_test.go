package suite

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/hailam/chessorder/internal/board"
)

const epdText = `# perft positions
rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1

r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - bm Qxf6; id "kiwipete";
8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 12 40 id "endgame";
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func checkEPDEntries(t *testing.T, entries []Entry, source string) {
	t.Helper()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	tests := []struct {
		id        string
		placement string
		bm        []string
	}{
		{source + ":2", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", nil},
		{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R", []string{"Qxf6"}},
		{"endgame", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8", nil},
	}
	for i, tt := range tests {
		e := entries[i]
		if e.ID != tt.id {
			t.Errorf("entry %d: ID = %q, want %q", i, e.ID, tt.id)
		}
		if !strings.HasPrefix(e.FEN, tt.placement+" ") {
			t.Errorf("entry %d: FEN = %q, want placement %q", i, e.FEN, tt.placement)
		}
		if e.Position == nil {
			t.Fatalf("entry %d: nil position", i)
		}
		if strings.Join(e.BestMoves, ",") != strings.Join(tt.bm, ",") {
			t.Errorf("entry %d: bm = %v, want %v", i, e.BestMoves, tt.bm)
		}
	}

	if got := entries[1].Position.Perft(1); got != 48 {
		t.Errorf("kiwipete perft(1) = %d, want 48", got)
	}
}

func TestReadEPD(t *testing.T) {
	entries, err := ReadEPD(strings.NewReader(epdText))
	if err != nil {
		t.Fatalf("ReadEPD failed: %v", err)
	}
	checkEPDEntries(t, entries, "epd")
}

func TestReadEPDInvalid(t *testing.T) {
	tests := []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq -",
	}
	for _, line := range tests {
		_, err := ReadEPD(strings.NewReader(line + "\n"))
		if !errors.Is(err, board.ErrInvalidFEN) {
			t.Errorf("ReadEPD(%q): got %v, want ErrInvalidFEN", line, err)
		}
	}
}

func TestLoadEPD(t *testing.T) {
	for _, name := range []string{"perft.epd", "perft.fen", "perft.txt"} {
		t.Run(name, func(t *testing.T) {
			entries, err := Load(writeFile(t, name, epdText), Options{})
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			checkEPDEntries(t, entries, "perft")
		})
	}
}

func TestLoadCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perft.epd.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte(epdText)); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	entries, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	checkEPDEntries(t, entries, "perft")
}

func TestLoadMaxPositions(t *testing.T) {
	entries, err := Load(writeFile(t, "perft.epd", epdText), Options{MaxPositions: 2})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestLoadPGN(t *testing.T) {
	const game = `[Event "Test"]
[White "A"]
[Black "B"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 1-0
`
	entries, err := Load(writeFile(t, "games.pgn", game), Options{PlyStride: 2})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w",
		"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w",
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d positions, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if !strings.HasPrefix(entries[i].FEN, w+" ") {
			t.Errorf("position %d: FEN = %q, want prefix %q", i, entries[i].FEN, w)
		}
	}
	if entries[0].ID != "games:1:2" {
		t.Errorf("ID = %q, want games:1:2", entries[0].ID)
	}
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load(writeFile(t, "positions.csv", "x"), Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.epd"), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
}

func TestDefault(t *testing.T) {
	entries := Default()
	if len(entries) != 6 {
		t.Fatalf("got %d entries, want 6", len(entries))
	}

	perft1 := map[string]uint64{
		"startpos": 20,
		"kiwipete": 48,
		"perft-3":  14,
		"perft-4":  6,
		"perft-5":  44,
		"perft-6":  46,
	}
	for _, e := range entries {
		if got := e.Position.Perft(1); got != perft1[e.ID] {
			t.Errorf("%s: perft(1) = %d, want %d", e.ID, got, perft1[e.ID])
		}
	}

	positions := BenchPositions(entries)
	if len(positions) != len(entries) {
		t.Fatalf("BenchPositions returned %d positions", len(positions))
	}
	if positions[0].Position == entries[0].Position {
		t.Error("BenchPositions shares positions with the suite")
	}
	if positions[1].ID != "kiwipete" {
		t.Errorf("ID = %q, want kiwipete", positions[1].ID)
	}
}

func TestBenchPositionsBestMoves(t *testing.T) {
	entries, err := ReadEPD(strings.NewReader(
		"6k1/5ppp/8/8/8/8/8/R5K1 w - - bm Ra8#; id \"mate\";\n" +
			"6k1/5ppp/8/8/8/8/8/R5K1 w - - bm Qd8 Ra7; id \"bad\";\n"))
	if err != nil {
		t.Fatalf("ReadEPD failed: %v", err)
	}

	positions := BenchPositions(entries)
	if len(positions[0].BestMoves) != 1 || positions[0].BestMoves[0].String() != "a1a8" {
		t.Errorf("mate best moves = %v, want [a1a8]", positions[0].BestMoves)
	}
	// Qd8 names no piece on the board.
	if len(positions[1].BestMoves) != 1 || positions[1].BestMoves[0].String() != "a1a7" {
		t.Errorf("bad best moves = %v, want [a1a7]", positions[1].BestMoves)
	}
}
