package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/hailam/chessmcp/internal/board"
	"github.com/hailam/chessmcp/internal/eval"
)

// Key prefixes
const (
	prefixEval = "eval/"
)

// EvalRecord is the stored form of one engine evaluation.
type EvalRecord struct {
	Eval     eval.Evaluation `json:"eval"`
	Depth    int             `json:"depth"`
	StoredAt time.Time       `json:"stored_at"`
}

// EvalStore wraps BadgerDB to persist engine evaluations keyed by search
// depth and FEN. Stored evaluations never carry a perspective.
type EvalStore struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens (or creates) the store in dir. An empty dir selects the
// default database directory.
func Open(dir string, log zerolog.Logger) (*EvalStore, error) {
	if dir == "" {
		var err error
		dir, err = GetDatabaseDir()
		if err != nil {
			return nil, err
		}
	}

	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open eval store %s: %w", dir, err)
	}

	log.Debug().Str("dir", dir).Msg("eval store opened")
	return &EvalStore{db: db, log: log}, nil
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory(log zerolog.Logger) (*EvalStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{log})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &EvalStore{db: db, log: log}, nil
}

// Close closes the database
func (s *EvalStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Key returns the cache key for a position searched to depth.
func Key(depth int, fen string) string {
	return strconv.Itoa(depth) + "/" + fen
}

// Get loads the evaluation stored for fen at depth. The boolean is false
// when nothing is stored.
func (s *EvalStore) Get(depth int, fen string) (eval.Evaluation, bool, error) {
	var rec EvalRecord
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixEval + Key(depth, fen)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return eval.Evaluation{}, false, fmt.Errorf("load evaluation %q: %w", fen, err)
	}
	if !found {
		return eval.Evaluation{}, false, nil
	}

	return rec.Eval.WithPerspective(board.NoColor), true, nil
}

// Put stores ev for fen at depth, replacing any earlier entry.
func (s *EvalStore) Put(depth int, fen string, ev eval.Evaluation) error {
	data, err := json.Marshal(EvalRecord{
		Eval:     ev.WithPerspective(board.NoColor),
		Depth:    depth,
		StoredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixEval+Key(depth, fen)), data)
	})
}

// Count returns the number of stored evaluations.
func (s *EvalStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixEval)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// badgerLogger routes badger's log output to zerolog. Info and debug
// messages are demoted to debug and trace.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug().Str("component", "badger").Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Trace().Str("component", "badger").Msgf(format, args...)
}
