package journal

import (
	"bytes"
	"fmt"
	"strconv"
	stdsync "sync"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/event"
)

// Key layout: evt/{created_at unixnano, 20 digits}/{seq, 6 digits}. The
// sequence disambiguates events sharing a timestamp while keeping their
// arrival order under lexicographic iteration.
const (
	keyPrefix     = "evt/"
	keyLowerBound = keyPrefix + "00000000000000000000"
	keyUpperBound = keyPrefix + "99999999999999999999"
)

// ErrClosed is returned after Close.
var ErrClosed = fmt.Errorf("journal closed")

// Journal is a pebble-backed log of raw events, the local replay source
// for reconnect recovery. Connection-lifecycle events are not journaled;
// they describe this process, not the conversation history.
type Journal struct {
	mu     stdsync.Mutex
	db     *pebble.DB
	seq    uint64
	closed bool
	log    *zerolog.Logger
}

// Open opens (or creates) the journal at path.
func Open(path string, logger *zerolog.Logger) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{db: db, log: logger}
	if err := j.seedSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// seedSeq resumes the write sequence past every existing key, so a
// reopened journal never reuses a key for an event sharing a timestamp
// with an already-journaled one.
func (j *Journal) seedSeq() error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyLowerBound),
		UpperBound: []byte(keyUpperBound),
	})
	if err != nil {
		return fmt.Errorf("create journal iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		i := bytes.LastIndexByte(key, '/')
		if i < 0 {
			continue
		}
		n, err := strconv.ParseUint(string(key[i+1:]), 10, 64)
		if err != nil {
			continue
		}
		if n >= j.seq {
			j.seq = n + 1
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterate journal: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	j.closed = true
	return j.db.Close()
}

// Append journals a batch of events in one atomic write.
func (j *Journal) Append(events []event.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	batch := j.db.NewBatch()
	defer batch.Close()

	n := 0
	for _, ev := range events {
		if !journalable(ev) {
			continue
		}
		data, err := event.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.EventType(), err)
		}
		key := fmt.Sprintf("%s%020d/%06d", keyPrefix, ev.EventCreatedAt().UnixNano(), j.seq)
		j.seq++
		if err := batch.Set([]byte(key), data, nil); err != nil {
			return fmt.Errorf("journal %s event: %w", ev.EventType(), err)
		}
		n++
	}
	if n == 0 {
		return nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit journal batch: %w", err)
	}
	j.log.Debug().Int("events", n).Msg("journal batch appended")
	return nil
}

// ReplaySince returns every journaled event created at or after the given
// unix-nano timestamp, in key order.
func (j *Journal) ReplaySince(sinceUnixNano int64) ([]event.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, ErrClosed
	}

	lower := fmt.Sprintf("%s%020d", keyPrefix, sinceUnixNano)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(lower),
		UpperBound: []byte(keyUpperBound),
	})
	if err != nil {
		return nil, fmt.Errorf("create journal iterator: %w", err)
	}
	defer iter.Close()

	var events []event.Event
	for iter.First(); iter.Valid(); iter.Next() {
		ev, err := event.Parse(iter.Value())
		if err != nil {
			j.log.Warn().Err(err).Str("key", string(iter.Key())).Msg("skipping corrupt journal entry")
			continue
		}
		events = append(events, ev)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return events, nil
}

// PruneBefore deletes every journaled event created before the given
// unix-nano timestamp and returns how many were removed.
func (j *Journal) PruneBefore(beforeUnixNano int64) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrClosed
	}

	upper := fmt.Sprintf("%s%020d", keyPrefix, beforeUnixNano)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyLowerBound),
		UpperBound: []byte(upper),
	})
	if err != nil {
		return 0, fmt.Errorf("create journal iterator: %w", err)
	}
	defer iter.Close()

	batch := j.db.NewBatch()
	defer batch.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		if err := batch.Delete(iter.Key(), nil); err != nil {
			return 0, fmt.Errorf("delete journal entry: %w", err)
		}
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("iterate journal: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("commit journal prune: %w", err)
	}
	return n, nil
}

// journalable filters out events that describe this process rather than
// the conversation history.
func journalable(ev event.Event) bool {
	switch ev.(type) {
	case *event.Connected, *event.Connecting, *event.Disconnected,
		*event.Health, *event.Error, *event.Unknown:
		return false
	}
	return !ev.EventCreatedAt().IsZero()
}
