package uci

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hailam/chessorder/internal/board"
	"github.com/hailam/chessorder/internal/engine"
	"github.com/hailam/chessorder/internal/storage"
)

func run(t *testing.T, script string) (*UCI, string) {
	t.Helper()
	var out bytes.Buffer
	u := New(engine.NewEngine(1), &out)
	if err := u.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := u.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return u, out.String()
}

func lines(out string) []string {
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

func TestHandshake(t *testing.T) {
	_, out := run(t, "uci\nisready\nquit\n")
	for _, want := range []string{
		"id name ChessOrder",
		"option name Hash type spin",
		"option name Threads type spin",
		"option name HintDB type string",
		"uciok",
		"readyok",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPosition(t *testing.T) {
	tests := []struct {
		name      string
		cmd       string
		placement string
	}{
		{"startpos", "position startpos", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w"},
		{"moves", "position startpos moves e2e4 e7e5 g1f3", "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b"},
		{"fen", "position fen 8/P6k/8/8/8/8/8/K7 w - - 0 1 moves a7a8n", "N7/7k/8/8/8/8/8/K7 b"},
		{"fen without counters", "position fen 8/P6k/8/8/8/8/8/K7 w - -", "8/P6k/8/8/8/8/8/K7 w"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, out := run(t, tt.cmd+"\n")
			if out != "" {
				t.Errorf("unexpected output: %q", out)
			}
			if fen := u.position.ToFEN(); !strings.HasPrefix(fen, tt.placement+" ") {
				t.Errorf("position %q, want %q", fen, tt.placement)
			}
		})
	}
}

func TestPositionErrors(t *testing.T) {
	tests := []struct {
		cmd  string
		want string
	}{
		{"position startpos moves e2e5", "Invalid move e2e5"},
		{"position startpos moves e2e4 zz", "Invalid move zz"},
		{"position fen 8/8/8 w - -", "Invalid FEN"},
	}
	for _, tt := range tests {
		u, out := run(t, "position fen 8/P6k/8/8/8/8/8/K7 w - - 0 1\n"+tt.cmd+"\n")
		if !strings.Contains(out, tt.want) {
			t.Errorf("%s: output %q, want %q", tt.cmd, out, tt.want)
		}
		// A failed command leaves the previous position in place.
		if fen := u.position.ToFEN(); !strings.HasPrefix(fen, "8/P6k/8/8/8/8/8/K7 w") {
			t.Errorf("%s: position changed to %q", tt.cmd, fen)
		}
	}
}

func TestGoDepth(t *testing.T) {
	_, out := run(t, "position startpos\ngo depth 2\n")

	ls := lines(out)
	last := ls[len(ls)-1]
	if !strings.HasPrefix(last, "bestmove ") {
		t.Fatalf("last line %q, want bestmove", last)
	}
	m, err := board.ParseMove(strings.TrimPrefix(last, "bestmove "))
	if err != nil || !board.NewPosition().IsLegal(m) {
		t.Errorf("bestmove %q is not legal in the start position", last)
	}
	if !strings.Contains(out, "info depth 1 score cp") || !strings.Contains(out, "info depth 2 score cp") {
		t.Errorf("missing info lines:\n%s", out)
	}
}

func TestGoMateInOne(t *testing.T) {
	_, out := run(t, "position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1\ngo depth 4\n")
	if !strings.Contains(out, "score mate 1") {
		t.Errorf("missing mate score:\n%s", out)
	}
	if !strings.Contains(out, "pv a1a8") {
		t.Errorf("missing pv:\n%s", out)
	}
	if !strings.HasSuffix(out, "bestmove a1a8\n") {
		t.Errorf("want bestmove a1a8:\n%s", out)
	}
}

func TestGoNoMoves(t *testing.T) {
	_, out := run(t, "position fen rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3\ngo depth 2\n")
	if !strings.HasSuffix(out, "bestmove 0000\n") {
		t.Errorf("want bestmove 0000:\n%s", out)
	}
}

func TestStopInfinite(t *testing.T) {
	var out bytes.Buffer
	u := New(engine.NewEngine(1), &out)
	done := make(chan error, 1)
	go func() {
		done <- u.Run(strings.NewReader("position startpos\ngo infinite\nstop\nquit\n"))
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("stop did not end the infinite search")
	}
	if !strings.Contains(out.String(), "bestmove ") {
		t.Errorf("no bestmove after stop:\n%s", out.String())
	}
}

func TestPerft(t *testing.T) {
	_, out := run(t, "position startpos\nperft 2\n")
	if !strings.Contains(out, "a2a3: 20\n") || !strings.Contains(out, "g1f3: 20\n") {
		t.Errorf("missing divide lines:\n%s", out)
	}
	if !strings.Contains(out, "Nodes searched: 400\n") {
		t.Errorf("wrong node count:\n%s", out)
	}
}

func TestOrder(t *testing.T) {
	const fen = "position fen k7/8/8/2qp4/3P4/8/8/7K w - - 0 1\n"
	tests := []struct {
		name string
		cmd  string
		want []string
	}{
		{
			name: "no hints",
			cmd:  "order",
			want: []string{"1 d4c5 captures", "2 h1g1 quiets", "3 h1g2 quiets", "4 h1h2 quiets", "moves 4"},
		},
		{
			name: "hash and killer",
			cmd:  "order hash h1g2 killer h1h2",
			want: []string{"1 h1g2 hashmove", "2 d4c5 captures", "3 h1h2 captures", "4 h1g1 quiets", "moves 4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out := run(t, fen+tt.cmd+"\n")
			got := lines(out)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	_, out := run(t, "order hash e2e9\n")
	if !strings.Contains(out, "Invalid move e2e9") {
		t.Errorf("bad hash move accepted:\n%s", out)
	}
}

func TestSetOption(t *testing.T) {
	u, out := run(t, strings.Join([]string{
		"setoption name Hash value 2",
		"setoption name Threads value 3",
		"setoption name Debug value true",
		"setoption name Threads value none",
		"setoption name Ponder value true",
	}, "\n")+"\n")

	if u.threads != 3 {
		t.Errorf("threads = %d, want 3", u.threads)
	}
	if !u.debug {
		t.Error("debug not enabled")
	}
	if !strings.Contains(out, "Invalid Threads value: none") {
		t.Errorf("missing Threads error:\n%s", out)
	}
	if !strings.Contains(out, "Unknown option: Ponder") {
		t.Errorf("missing unknown option message:\n%s", out)
	}
}

func TestHintDB(t *testing.T) {
	dir := t.TempDir()
	_, out := run(t, "setoption name HintDB value "+dir+"\nposition startpos\ngo depth 2\n")

	ls := lines(out)
	best, err := board.ParseMove(strings.TrimPrefix(ls[len(ls)-1], "bestmove "))
	if err != nil {
		t.Fatalf("bad bestmove line %q", ls[len(ls)-1])
	}

	s, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
	hint, err := s.LoadHint(board.NewPosition().Hash())
	if err != nil {
		t.Fatalf("no hint stored: %v", err)
	}
	if hint != best {
		t.Errorf("stored hint %v, want %v", hint, best)
	}
}

func TestBench(t *testing.T) {
	_, out := run(t, "setoption name Threads value 2\nbench depth 2\n")
	for _, want := range []string{"info string kiwipete bestmove ", "Positions: 6", "Nodes: ", "NPS: "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGoOptionsLimits(t *testing.T) {
	opts := parseGoOptions(strings.Fields("wtime 60000 btime 30000 winc 1000 binc 500 movestogo 20 depth 7 nodes 5000"))
	limits := opts.Limits()

	if limits.Depth != 7 || limits.Nodes != 5000 {
		t.Errorf("depth/nodes = %d/%d", limits.Depth, limits.Nodes)
	}
	if limits.Clock.Time[board.White] != time.Minute || limits.Clock.Time[board.Black] != 30*time.Second {
		t.Errorf("clock times = %v", limits.Clock.Time)
	}
	if limits.Clock.Inc[board.White] != time.Second || limits.Clock.Inc[board.Black] != 500*time.Millisecond {
		t.Errorf("increments = %v", limits.Clock.Inc)
	}
	if limits.Clock.MovesToGo != 20 {
		t.Errorf("movestogo = %d", limits.Clock.MovesToGo)
	}

	opts = parseGoOptions([]string{"movetime", "250", "infinite", "depth"})
	if opts.MoveTime != 250*time.Millisecond || !opts.Infinite || opts.Depth != 0 {
		t.Errorf("parsed %+v", opts)
	}
}

func TestDebugInfo(t *testing.T) {
	_, out := run(t, "setoption name Debug value true\nposition fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1\ngo depth 2\n")
	if !strings.Contains(out, "info string san Ra8#") {
		t.Errorf("missing SAN line:\n%s", out)
	}
	if !strings.Contains(out, "hashchecks ") {
		t.Errorf("missing ordering counters:\n%s", out)
	}
}
