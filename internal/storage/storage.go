package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chessorder/internal/board"
	"github.com/hailam/chessorder/internal/engine"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// Key prefixes
const (
	prefixHint   = "hint/"
	prefixReport = "report/"
)

// hintRecord is the stored form of a hash move.
type hintRecord struct {
	Move    string    `json:"move"`
	Updated time.Time `json:"updated"`
}

// Storage wraps BadgerDB. It keeps hash moves across runs and the reports of
// bench runs, and satisfies engine.HintStore.
type Storage struct {
	db *badger.DB
}

var _ engine.HintStore = (*Storage)(nil)

// NewStorage opens the database in the default data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir)
}

// Open opens or creates a database in dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging
	return open(opts)
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Storage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func hintKey(hash uint64) []byte {
	key := make([]byte, len(prefixHint)+8)
	copy(key, prefixHint)
	binary.BigEndian.PutUint64(key[len(prefixHint):], hash)
	return key
}

func reportKey(name string) []byte {
	return []byte(prefixReport + name)
}

func (s *Storage) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *Storage) get(key []byte, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// SaveHint stores m as the hash move of the position with the given hash.
func (s *Storage) SaveHint(hash uint64, m board.Move) error {
	return s.put(hintKey(hash), hintRecord{Move: m.String(), Updated: time.Now()})
}

// SaveHints stores many hash moves in one batch.
func (s *Storage) SaveHints(hints map[uint64]board.Move) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	now := time.Now()
	for hash, m := range hints {
		data, err := json.Marshal(hintRecord{Move: m.String(), Updated: now})
		if err != nil {
			return err
		}
		if err := wb.Set(hintKey(hash), data); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// LoadHint returns the stored hash move for hash, or ErrNotFound.
func (s *Storage) LoadHint(hash uint64) (board.Move, error) {
	var rec hintRecord
	if err := s.get(hintKey(hash), &rec); err != nil {
		return board.NoMove, err
	}
	m, err := board.ParseMove(rec.Move)
	if err != nil {
		return board.NoMove, fmt.Errorf("hint %016x: %w", hash, err)
	}
	return m, nil
}

// SaveReport stores a bench report under name.
func (s *Storage) SaveReport(name string, report *engine.BenchReport) error {
	if name == "" {
		return errors.New("report name is empty")
	}
	return s.put(reportKey(name), report)
}

// LoadReport returns the bench report stored under name, or ErrNotFound.
func (s *Storage) LoadReport(name string) (*engine.BenchReport, error) {
	report := &engine.BenchReport{}
	if err := s.get(reportKey(name), report); err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns the names of all stored reports in key order.
func (s *Storage) ListReports() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixReport)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), prefixReport))
		}
		return nil
	})
	return names, err
}
