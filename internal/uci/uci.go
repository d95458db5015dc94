// Package uci implements the Universal Chess Interface front end of the engine.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chessorder/internal/board"
	"github.com/hailam/chessorder/internal/engine"
	"github.com/hailam/chessorder/internal/storage"
	"github.com/hailam/chessorder/internal/suite"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position
	out      io.Writer
	outMu    sync.Mutex
	logger   zerolog.Logger

	// Options
	threads int
	debug   bool
	hints   *storage.Storage

	// Search state
	searchPos  *board.Position // root of the running search, read by sendInfo
	searchDone chan struct{}
}

// New creates a new UCI protocol handler writing responses to out.
func New(eng *engine.Engine, out io.Writer) *UCI {
	u := &UCI{
		engine:   eng,
		position: board.NewPosition(),
		out:      out,
		logger:   zerolog.Nop(),
		threads:  1,
	}
	eng.OnInfo = u.sendInfo
	return u
}

// SetLogger sets the diagnostics logger. It must not write to the protocol output.
func (u *UCI) SetLogger(logger zerolog.Logger) {
	u.logger = logger
	u.applyDebug()
}

// SetHintDB opens the badger hint store in dir and hands it to the engine.
// An empty dir closes the current store.
func (u *UCI) SetHintDB(dir string) error {
	if u.hints != nil {
		u.engine.SetHintStore(nil)
		if err := u.hints.Close(); err != nil {
			u.logger.Warn().Err(err).Msg("close-hintdb")
		}
		u.hints = nil
	}
	if dir == "" || dir == "<empty>" {
		return nil
	}

	hints, err := storage.Open(dir)
	if err != nil {
		return err
	}
	u.hints = hints
	u.engine.SetHintStore(hints)
	u.logger.Info().Str("dir", dir).Msg("hintdb-open")
	return nil
}

// Close waits for a running search and releases the hint store.
func (u *UCI) Close() error {
	u.handleStop()
	return u.SetHintDB("")
}

func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Run reads commands from in until "quit" or end of input. At end of input a
// running search is allowed to finish; "quit" stops it.
func (u *UCI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]
		u.logger.Debug().Str("cmd", line).Msg("uci-in")

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.send("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.handleDisplay()
		case "perft":
			u.handlePerft(args)
		case "order":
			u.handleOrder(args)
		case "bench":
			u.handleBench(args)
		default:
			u.send("info string Unknown command: %s", cmd)
		}
	}

	u.waitSearch()
	return scanner.Err()
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.send("id name ChessOrder")
	u.send("id author ChessOrder Team")
	u.send("")
	u.send("option name Hash type spin default 64 min 1 max 4096")
	u.send("option name Threads type spin default 1 min 1 max 256")
	u.send("option name HintDB type string default <empty>")
	u.send("option name Debug type check default false")
	u.send("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			u.send("info string Invalid FEN: %v", err)
			return
		}
	default:
		return
	}

	if movesAt < len(args) {
		for _, moveStr := range args[movesAt+1:] {
			m, err := board.ParseMove(moveStr)
			if err == nil {
				err = pos.Play(m)
			}
			if err != nil {
				u.send("info string Invalid move %s: %v", moveStr, err)
				return
			}
		}
	}
	u.position = pos
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	u.handleStop()

	limits := parseGoOptions(args).Limits()
	root := u.position.Copy()
	pos := u.position.Copy()
	done := make(chan struct{})
	u.searchPos = root
	u.searchDone = done

	go func() {
		defer close(done)

		bestMove := u.engine.SearchWithLimits(pos, limits)
		if bestMove == board.NoMove || !root.IsLegal(bestMove) {
			// Only send 0000 for checkmate/stalemate (no legal moves)
			u.send("bestmove 0000")
			return
		}
		u.send("bestmove %s", bestMove)
	}()
}

// parseGoOptions parses "go" command arguments.
func parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	next := func(i *int) string {
		if *i+1 < len(args) {
			*i++
			return args[*i]
		}
		return ""
	}
	millis := func(i *int) time.Duration {
		ms, _ := strconv.Atoi(next(i))
		return time.Duration(ms) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			opts.Depth, _ = strconv.Atoi(next(&i))
		case "nodes":
			opts.Nodes, _ = strconv.ParseUint(next(&i), 10, 64)
		case "movetime":
			opts.MoveTime = millis(&i)
		case "infinite":
			opts.Infinite = true
		case "wtime":
			opts.WTime = millis(&i)
		case "btime":
			opts.BTime = millis(&i)
		case "winc":
			opts.WInc = millis(&i)
		case "binc":
			opts.BInc = millis(&i)
		case "movestogo":
			opts.MovesToGo, _ = strconv.Atoi(next(&i))
		}
	}

	return opts
}

// Limits converts GoOptions to engine.SearchLimits.
func (o GoOptions) Limits() engine.SearchLimits {
	limits := engine.SearchLimits{
		Depth:    o.Depth,
		Nodes:    o.Nodes,
		MoveTime: o.MoveTime,
		Infinite: o.Infinite,
	}
	limits.Clock.Time[board.White] = o.WTime
	limits.Clock.Time[board.Black] = o.BTime
	limits.Clock.Inc[board.White] = o.WInc
	limits.Clock.Inc[board.Black] = o.BInc
	limits.Clock.MovesToGo = o.MovesToGo
	return limits
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		"score " + engine.FormatScore(info.Score),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
	}

	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	// Stop the PV at the first move that does not fit the position.
	var line []board.Move
	pos := u.searchPos.Copy()
	for _, m := range info.PV {
		if pos.Play(m) != nil {
			break
		}
		line = append(line, m)
	}
	if len(line) > 0 {
		pv := make([]string, len(line))
		for i, m := range line {
			pv[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}

	u.send("info %s", strings.Join(parts, " "))
	if u.debug {
		u.send("info string cutoffs %d first %.3f avgindex %.2f hashchecks %d illegalhash %d",
			info.Stats.BetaCutoffs, info.Stats.FirstMoveCutoffRate(),
			info.Stats.AverageCutoffIndex(), info.Stats.HashMoveChecks, info.Stats.IllegalHashMoves)
		if len(line) > 0 {
			u.send("info string san %s", strings.Join(board.MovesToSAN(u.searchPos, line), " "))
		}
	}
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.searchDone == nil {
		return
	}
	u.engine.Stop()
	// The search may not have started when the first stop arrives.
	for {
		select {
		case <-u.searchDone:
			u.searchDone = nil
			return
		case <-time.After(10 * time.Millisecond):
			u.engine.Stop()
		}
	}
}

func (u *UCI) waitSearch() {
	if u.searchDone != nil {
		<-u.searchDone
		u.searchDone = nil
	}
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}
	val := strings.Join(value, " ")

	u.handleStop()
	switch strings.ToLower(strings.Join(name, " ")) {
	case "hash":
		mb, err := strconv.Atoi(val)
		if err != nil || mb < 1 {
			u.send("info string Invalid Hash value: %s", val)
			return
		}
		u.engine.SetHashSize(mb)
	case "threads":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			u.send("info string Invalid Threads value: %s", val)
			return
		}
		u.threads = n
	case "hintdb":
		if err := u.SetHintDB(val); err != nil {
			u.send("info string Failed to open hint database: %v", err)
		}
	case "debug":
		u.debug = strings.ToLower(val) == "true"
		u.applyDebug()
	default:
		u.send("info string Unknown option: %s", strings.Join(name, " "))
	}
}

func (u *UCI) applyDebug() {
	if u.debug {
		u.engine.SetLogger(u.logger.Level(zerolog.DebugLevel))
	} else {
		u.engine.SetLogger(u.logger)
	}
}

// handleDisplay prints the current position.
func (u *UCI) handleDisplay() {
	u.send("%s", strings.TrimRight(u.position.String(), "\n"))
}

// handlePerft runs a perft test, printing the count below each move.
func (u *UCI) handlePerft(args []string) {
	u.handleStop()
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil {
			depth = d
		}
	}

	start := time.Now()
	counts := u.engine.PerftDivide(u.position.Copy(), depth)
	elapsed := time.Since(start)

	lines := make([]string, 0, len(counts))
	var nodes uint64
	for m, n := range counts {
		lines = append(lines, fmt.Sprintf("%s: %d", m, n))
		nodes += n
	}
	sort.Strings(lines)
	for _, line := range lines {
		u.send("%s", line)
	}

	u.send("")
	u.send("Nodes searched: %d", nodes)
	u.send("Time: %v", elapsed)
}

// handleOrder prints the staged move stream of the current position.
// Format: order [hash <move>] [killer <move>]
func (u *UCI) handleOrder(args []string) {
	hash, killer := board.NoMove, board.NoMove
	for i := 0; i+1 < len(args); i += 2 {
		m, err := board.ParseMove(args[i+1])
		if err != nil {
			u.send("info string Invalid move %s: %v", args[i+1], err)
			return
		}
		switch args[i] {
		case "hash":
			hash = m
		case "killer":
			killer = m
		default:
			u.send("info string Unknown order argument: %s", args[i])
			return
		}
	}

	pos := u.position.Copy()
	mo := engine.NewMoveOrdering(pos, hash, killer)
	n := 0
	for {
		m, ok := mo.Next()
		if !ok {
			break
		}
		n++
		// The stage only stays at PrepareCaptures after the hash move.
		stage := mo.Stage()
		if stage == engine.StagePrepareCaptures {
			stage = engine.StageHashMove
		}
		u.send("%d %s %s", n, m, stage)
	}
	u.send("moves %d", n)
}

// handleBench runs the built-in suite on the configured number of threads.
// Format: bench [depth <n>]
func (u *UCI) handleBench(args []string) {
	u.handleStop()
	opts := engine.BenchOptions{Depth: 5, Threads: u.threads}
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == "depth" {
			if d, err := strconv.Atoi(args[i+1]); err == nil {
				opts.Depth = d
			}
		}
	}

	u.engine.Clear()
	report, err := engine.Bench(context.Background(), u.engine.TT(), suite.BenchPositions(suite.Default()), opts, u.logger)
	if err != nil {
		u.send("info string Bench failed: %v", err)
		return
	}

	for _, r := range report.Results {
		u.send("info string %s bestmove %s score %s nodes %d", r.ID, r.BestMove, engine.FormatScore(r.Score), r.Nodes)
	}
	u.send("Positions: %d", report.Positions)
	u.send("Nodes: %d", report.Stats.TotalNodes())
	u.send("First-move cutoffs: %.3f", report.Stats.FirstMoveCutoffRate())
	u.send("NPS: %.0f", report.NodesPerSecond())
}
