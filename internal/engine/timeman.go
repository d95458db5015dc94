package engine

import (
	"time"

	"github.com/hailam/chessorder/internal/board"
)

// Clock holds UCI clock parameters, indexed by color.
type Clock struct {
	Time      [2]time.Duration // remaining time
	Inc       [2]time.Duration // increment per move
	MovesToGo int              // moves until the next time control, 0 for sudden death
}

// IsSet reports whether any clock time was given.
func (c Clock) IsSet() bool {
	return c.Time[board.White] > 0 || c.Time[board.Black] > 0
}

// TimeManager decides how long one search may run.
type TimeManager struct {
	optimumTime time.Duration
	maximumTime time.Duration
	startTime   time.Time
}

// Init starts the clock for a search. A zero duration means no time limit.
func (tm *TimeManager) Init(limits SearchLimits, us board.Color) {
	tm.startTime = time.Now()
	tm.optimumTime, tm.maximumTime = 0, 0

	switch {
	case limits.Infinite:
		return
	case limits.MoveTime > 0:
		// An iteration rarely finishes in less time than all earlier ones took.
		tm.optimumTime = limits.MoveTime / 2
		tm.maximumTime = limits.MoveTime
		return
	case !limits.Clock.IsSet():
		return
	}

	timeLeft := limits.Clock.Time[us]
	inc := limits.Clock.Inc[us]
	mtg := limits.Clock.MovesToGo
	if mtg <= 0 {
		mtg = 30
	}

	tm.optimumTime = timeLeft/time.Duration(mtg) + inc*9/10
	tm.maximumTime = min(tm.optimumTime*5, timeLeft*8/10)

	tm.optimumTime = max(tm.optimumTime, 10*time.Millisecond)
	tm.maximumTime = max(tm.maximumTime, 50*time.Millisecond)
	if tm.optimumTime > tm.maximumTime {
		tm.optimumTime = tm.maximumTime
	}
}

// Elapsed returns the time elapsed since the search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// PastOptimum reports whether another iteration should not be started.
func (tm *TimeManager) PastOptimum() bool {
	return tm.optimumTime > 0 && tm.Elapsed() >= tm.optimumTime
}

// MaximumTime returns the hard limit, or 0 if there is none.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}
