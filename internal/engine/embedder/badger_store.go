package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// BadgerStore keeps text embeddings on local disk so restarts skip
// re-encoding the prompt set.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Dir is required unless InMemory is set.
	Dir      string
	InMemory bool
	// TTL expires entries; zero keeps them forever.
	TTL time.Duration
}

// OpenBadger opens (or creates) the store.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	return &BadgerStore{db: db, ttl: opts.TTL}, nil
}

func (s *BadgerStore) Get(_ context.Context, keys []string) ([][]float32, error) {
	out := make([][]float32, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for i, k := range keys {
			item, err := txn.Get([]byte(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				var vec []float32
				if err := msgpack.Unmarshal(val, &vec); err != nil {
					return nil // treat as miss
				}
				out[i] = vec
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: get: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Set(_ context.Context, entries map[string][]float32) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for k, vec := range entries {
		data, err := msgpack.Marshal(vec)
		if err != nil {
			return fmt.Errorf("badger: encode %s: %w", k, err)
		}
		e := badger.NewEntry([]byte(k), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		if err := wb.SetEntry(e); err != nil {
			return fmt.Errorf("badger: set: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger: flush: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger warnings and errors to slog and drops the rest.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{})   { slog.Error(fmt.Sprintf("badger: "+f, v...)) }
func (badgerLogger) Warningf(f string, v ...interface{}) { slog.Warn(fmt.Sprintf("badger: "+f, v...)) }
func (badgerLogger) Infof(string, ...interface{})        {}
func (badgerLogger) Debugf(string, ...interface{})       {}
