// Package journal persists the applied event stream to a local pebble
// database so a restarted process can rebuild its in-memory state by
// replay instead of a cold backfill.
package journal

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"roomsync/pkg/models"
)

// record is the stored form of one applied envelope.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	TS   int64           `json:"ts"`
}

// Journal is an append-only event log. Keys are "evt:<ts>-<seq>" with
// zero-padded fields so iteration order is append order even when two
// envelopes share a timestamp.
type Journal struct {
	db  *pebble.DB
	seq uint64
}

// Open opens (or creates) the journal at path.
func Open(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Journal{db: db}, nil
}

// Append stores one applied envelope. ts is the transport timestamp in
// nanoseconds; zero is allowed and sorts before all real timestamps.
func (j *Journal) Append(ev models.Envelope, ts int64) error {
	seq := atomic.AddUint64(&j.seq, 1)
	key := fmt.Sprintf("evt:%020d-%012d", ts, seq)
	val, err := json.Marshal(record{Type: ev.Type, Data: ev.Data, TS: ts})
	if err != nil {
		return err
	}
	if err := j.db.Set([]byte(key), val, pebble.NoSync); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	return nil
}

// Replay feeds every stored envelope, in key order, to fn. A non-nil
// error from fn stops the replay.
func (j *Journal) Replay(fn func(models.Envelope) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("evt:"),
		UpperBound: []byte("evt;"),
	})
	if err != nil {
		return fmt.Errorf("journal iter: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return fmt.Errorf("journal decode %s: %w", iter.Key(), err)
		}
		if err := fn(models.Envelope{Type: rec.Type, Data: rec.Data}); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Len counts the stored records. Intended for tests and diagnostics.
func (j *Journal) Len() (int, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("evt:"),
		UpperBound: []byte("evt;"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Close flushes and closes the underlying database.
func (j *Journal) Close() error {
	if err := j.db.Flush(); err != nil {
		_ = j.db.Close()
		return err
	}
	return j.db.Close()
}
