// Package history provides Badger DB-backed storage for past estimation
// runs, so results can be inspected or chained into later jobs after the
// fact.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key prefixes for different data types.
const (
	prefixRecord = "r:" // run records, keyed by timestamp then id
	prefixIndex  = "i:" // id -> record key index
)

// ErrNotFound is returned when no record exists for the given id.
var ErrNotFound = errors.New("history record not found")

// Record is one completed estimation run.
type Record struct {
	// ID identifies the run.
	ID string `json:"id"`

	// Timestamp is when the run finished.
	Timestamp time.Time `json:"timestamp"`

	// Kind is the job variant that produced the result.
	Kind string `json:"kind"`

	// Props are the job properties as given, in key=value form.
	Props []string `json:"props,omitempty"`

	// Result is the job's machine-readable result.
	Result json.RawMessage `json:"result"`

	// Elapsed is how long the run took.
	Elapsed time.Duration `json:"elapsed"`
}

// Store is the run history backed by Badger DB.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // disable badger's own logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores a run record. A missing ID or Timestamp is filled in.
// Returns the stored record's ID.
func (s *Store) Append(rec *Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}

	key := recordKey(rec.Timestamp, rec.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte(prefixIndex+rec.ID), key)
	})
	if err != nil {
		return "", fmt.Errorf("writing record: %w", err)
	}

	return rec.ID, nil
}

// List returns up to limit records, newest first. A non-positive limit
// means no limit.
func (s *Store) List(limit int) ([]Record, error) {
	var records []Record

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixRecord)

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past the whole prefix range.
		seek := append([]byte(prefixRecord), 0xff)
		for it.Seek(seek); it.ValidForPrefix([]byte(prefixRecord)); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}

			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	return records, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(id string) (*Record, error) {
	var rec Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixIndex + id))
		if err != nil {
			return err
		}

		var key []byte
		if err := item.Value(func(val []byte) error {
			key = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}

	return &rec, nil
}

// Clean removes records older than maxAge and returns how many were
// deleted.
func (s *Store) Clean(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	deleted := 0

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixRecord)

		it := txn.NewIterator(opts)
		defer it.Close()

		var stale [][]byte
		var staleIDs []string
		for it.Seek([]byte(prefixRecord)); it.ValidForPrefix([]byte(prefixRecord)); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, id, ok := parseRecordKey(key)
			if !ok || !ts.Before(cutoff) {
				continue
			}
			stale = append(stale, key)
			staleIDs = append(staleIDs, id)
		}

		for i, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Delete([]byte(prefixIndex + staleIDs[i])); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("cleaning records: %w", err)
	}

	return deleted, nil
}

// recordKey builds a record key that sorts chronologically.
func recordKey(ts time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", prefixRecord, ts.UnixNano(), id)
}

// parseRecordKey extracts the timestamp and id from a record key.
func parseRecordKey(key []byte) (time.Time, string, bool) {
	rest, ok := strings.CutPrefix(string(key), prefixRecord)
	if !ok {
		return time.Time{}, "", false
	}

	tsPart, id, ok := strings.Cut(rest, ":")
	if !ok {
		return time.Time{}, "", false
	}

	var nanos int64
	if _, err := fmt.Sscanf(tsPart, "%d", &nanos); err != nil {
		return time.Time{}, "", false
	}

	return time.Unix(0, nanos).UTC(), id, true
}
