package engine

import (
	"sync"
	"sync/atomic"

	"github.com/hailam/chessorder/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// Number of lock shards, a power of two.
const (
	ttShardCount = 256
	ttShardMask  = ttShardCount - 1
	ttEntrySize  = 16
)

// TTEntry is one slot of the transposition table. Move is the hash move
// offered to the move ordering when the position is searched again.
type TTEntry struct {
	Key   uint64
	Move  board.Move
	Score int16
	Depth int8
	Flag  TTFlag
	Age   uint8
}

// TranspositionTable caches search results by Zobrist hash. It is safe for
// concurrent use by the bench workers, which share one table.
type TranspositionTable struct {
	entries []TTEntry
	shards  [ttShardCount]sync.RWMutex
	mask    uint64
	age     atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
	writes atomic.Uint64
}

// NewTranspositionTable creates a transposition table of about sizeMB megabytes.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	n := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / ttEntrySize)
	return &TranspositionTable{
		entries: make([]TTEntry, n),
		mask:    n - 1,
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (tt *TranspositionTable) lock(idx uint64) *sync.RWMutex {
	return &tt.shards[idx&ttShardMask]
}

// Probe looks up hash. The full key is compared, so a hit belongs to the same
// position unless two positions share a 64-bit hash.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes.Add(1)

	idx := hash & tt.mask
	mu := tt.lock(idx)
	mu.RLock()
	entry := tt.entries[idx]
	mu.RUnlock()

	if entry.Key != hash || entry.Depth <= 0 {
		return TTEntry{}, false
	}
	tt.hits.Add(1)
	return entry, true
}

// HashMove returns the stored move for hash, or NoMove.
func (tt *TranspositionTable) HashMove(hash uint64) board.Move {
	if entry, ok := tt.Probe(hash); ok {
		return entry.Move
	}
	return board.NoMove
}

// Store saves a search result. An entry from the current search is only
// replaced by one searched at least as deep.
func (tt *TranspositionTable) Store(hash uint64, depth, score int, flag TTFlag, move board.Move) {
	idx := hash & tt.mask
	mu := tt.lock(idx)
	mu.Lock()
	defer mu.Unlock()

	entry := &tt.entries[idx]
	age := uint8(tt.age.Load())
	if entry.Age == age && entry.Key != 0 && depth < int(entry.Depth) {
		return
	}
	// Keep the old move when the new result has none for the same position.
	if move == board.NoMove && entry.Key == hash {
		move = entry.Move
	}
	tt.writes.Add(1)
	*entry = TTEntry{
		Key:   hash,
		Move:  move,
		Score: int16(score),
		Depth: int8(depth),
		Flag:  flag,
		Age:   age,
	}
}

// NewSearch starts a new generation for replacement decisions.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Add(1)
}

// Clear empties the table and resets its statistics.
func (tt *TranspositionTable) Clear() {
	for i := range tt.shards {
		tt.shards[i].Lock()
	}
	clear(tt.entries)
	for i := range tt.shards {
		tt.shards[i].Unlock()
	}
	tt.age.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
	tt.writes.Store(0)
}

// IsEmpty reports whether nothing has been stored since the last Clear.
func (tt *TranspositionTable) IsEmpty() bool {
	return tt.writes.Load() == 0
}

// HashFull returns the permille of sampled entries written in the current search.
func (tt *TranspositionTable) HashFull() int {
	sample := min(1000, len(tt.entries))
	age := uint8(tt.age.Load())
	used := 0
	for i := 0; i < sample; i++ {
		mu := tt.lock(uint64(i))
		mu.RLock()
		e := tt.entries[i]
		mu.RUnlock()
		if e.Key != 0 && e.Age == age {
			used++
		}
	}
	return used * 1000 / sample
}

// HitRate returns the percentage of probes that found an entry.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.entries))
}

// AdjustScoreFromTT converts a stored mate score to one relative to ply.
func AdjustScoreFromTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT converts a mate score relative to ply to one relative to the node.
func AdjustScoreToTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
