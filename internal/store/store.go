// Package store implements the core log-structured storage engine (spec.md
// section 4.3): an in-memory index over append-only segment files, with
// crash recovery via the frozen-index manifest and background-free,
// caller-triggered compaction. Grounded on the indexed engine in
// _examples/gtarraga-kv-store/v4_indexed/v4_idx.go and v5/v5.go, adapted to
// the CommandPosition/compaction-threshold-doubling algorithm from
// _examples/original_source/src/engine/kvstore/kvstore.rs.
package store

import (
	"context"
	"os"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"kvs/internal/kverrors"
	"kvs/internal/record"
	"kvs/internal/segment"
	"kvs/internal/telemetry"
	"kvs/pkg/engine"
)

// Config configures a Store. Logger and Metrics are optional; a nil Logger
// becomes a no-op logger and a nil Metrics simply isn't updated.
type Config struct {
	DataDir             string
	MaxSegmentSize      int64
	CompactionThreshold int
	Logger              *zap.SugaredLogger
	Metrics             *telemetry.Metrics
}

// Store is the native engine.Engine implementation. A single sync.RWMutex
// serializes all access: readers (Get) take the read lock, writers
// (Set/Remove/compaction) take the write lock, matching spec.md section
// 4.3's "single-writer, many-reader" concurrency model.
type Store struct {
	mu sync.RWMutex

	dataDir             string
	maxSegmentSize      int64
	compactionThreshold int
	uncompacted         int

	index           map[string]segment.Position
	readers         map[segment.ID]*segment.Reader
	activeWriter    *segment.Writer
	activeSegmentID segment.ID

	log     *zap.SugaredLogger
	metrics *telemetry.Metrics
	tracer  trace.Tracer

	closed bool
}

var _ engine.Engine = (*Store)(nil)

// Open prepares dataDir for use, replaying a prior .dumpfile and the active
// segment's tail if present, or starting a fresh store otherwise, per
// spec.md section 4.3's open/recovery algorithm.
func Open(cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = telemetry.NewNop()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, kverrors.IO("create data directory", err).WithKey(cfg.DataDir)
	}

	ids, err := discoverSegments(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		dataDir:             cfg.DataDir,
		maxSegmentSize:      cfg.MaxSegmentSize,
		compactionThreshold: cfg.CompactionThreshold,
		index:               make(map[string]segment.Position),
		readers:             make(map[segment.ID]*segment.Reader),
		log:                 log,
		metrics:             cfg.Metrics,
		tracer:              telemetry.Tracer("kvs/store"),
	}

	m, ok, err := loadManifest(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	if ok {
		s.compactionThreshold = m.CompactionThreshold
		s.uncompacted = m.UncompactedSize
		for k, e := range m.FrozenIndex {
			s.index[k] = segment.Position{SegmentID: segment.ID(e.FileID), Offset: e.Pos}
		}
	}

	if len(ids) == 0 {
		// Fresh directory: create an empty segment 0 so it can be opened
		// for reading below.
		w, err := segment.NewWriter(cfg.DataDir, 0)
		if err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		ids = []segment.ID{0}
	}
	activeID := maxSegmentID(ids)

	for _, id := range ids {
		r, err := segment.NewReader(cfg.DataDir, id)
		if err != nil {
			return nil, err
		}
		s.readers[id] = r
	}

	if !ok {
		// No recovery metadata: replay every segment found from scratch, in
		// ascending ID order, so a directory left over from an unclean
		// shutdown without a manifest still recovers correctly.
		for _, id := range sortedIDs(ids) {
			if err := s.replaySegment(id); err != nil {
				return nil, err
			}
		}
	} else {
		// Frozen index already accounts for every sealed segment; only the
		// active segment's tail (written after the manifest was last saved)
		// needs replay.
		if err := s.replaySegment(activeID); err != nil {
			return nil, err
		}
	}

	writer, err := segment.NewWriter(cfg.DataDir, activeID)
	if err != nil {
		return nil, err
	}
	s.activeWriter = writer
	s.activeSegmentID = activeID

	if !ok {
		if err := writeManifest(cfg.DataDir, s.index, s.uncompacted, s.compactionThreshold); err != nil {
			return nil, err
		}
	}

	log.Infow("store opened", "data_dir", cfg.DataDir, "segments", len(s.readers), "keys", len(s.index), "active_segment", activeID)
	return s, nil
}

// replaySegment applies every record in segment id to the in-memory index,
// counting dead records in the uncompacted counter the same way Set/Remove
// do for newly written records (spec.md section 4.3).
func (s *Store) replaySegment(id segment.ID) error {
	r, ok := s.readers[id]
	if !ok {
		return kverrors.Corruption("replay: missing segment reader", nil).WithKey(segment.FileName(id))
	}
	it, err := r.Iter()
	if err != nil {
		return err
	}
	defer it.Close()

	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		switch entry.Record.Tag {
		case record.TagInsertion:
			if _, existed := s.index[entry.Record.Key]; existed {
				s.uncompacted++
			}
			s.index[entry.Record.Key] = entry.Pos
		case record.TagDiscard:
			if _, existed := s.index[entry.Record.Key]; existed {
				delete(s.index, entry.Record.Key)
				s.uncompacted += 2
			}
		}
	}
	return it.Err()
}

// Get returns the value stored for key.
func (s *Store) Get(key string) (string, bool, error) {
	_, span := s.tracer.Start(context.Background(), "store.Get")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[key]
	if !ok {
		return "", false, nil
	}
	shared, ok := s.readers[pos.SegmentID]
	if !ok {
		return "", false, kverrors.Corruption("index points at unknown segment", nil).WithKey(key)
	}
	// Clone a private handle before seeking: s.readers holds one *segment.Reader
	// per segment shared across every concurrent Get, and ReadRecordAt seeks
	// then reads on that reader's single *os.File. Reading the shared handle
	// directly would let two concurrent Gets into the same segment race on
	// the descriptor's seek position (spec.md section 4.1/5).
	r, err := shared.Clone()
	if err != nil {
		return "", false, err
	}
	defer r.Close()

	rec, err := r.ReadRecordAt(pos.Offset)
	if err != nil {
		return "", false, err
	}
	if rec.Tag != record.TagInsertion || rec.Key != key {
		return "", false, kverrors.Corruption("index position does not match record", nil).WithKey(key)
	}
	return rec.Value, true, nil
}

// Set inserts or overwrites key, triggering compaction if the uncompacted
// counter exceeds the current threshold (spec.md section 4.3).
func (s *Store) Set(key, value string) error {
	_, span := s.tracer.Start(context.Background(), "store.Set")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.appendRecord(record.Insertion(key, value))
	if err != nil {
		return err
	}
	if _, existed := s.index[key]; existed {
		s.uncompacted++
	}
	s.index[key] = pos
	s.observe("set", nil)
	return s.maybeCompactLocked()
}

// Remove deletes key, appending a tombstone record. Removing an absent key
// is a KeyNotFound error and does not write a tombstone (spec.md section
// 4.6: "Remove of a missing key" is an Error response, not a no-op).
func (s *Store) Remove(key string) error {
	_, span := s.tracer.Start(context.Background(), "store.Remove")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[key]; !ok {
		err := kverrors.KeyNotFound(key)
		s.observe("rm", err)
		return err
	}
	if _, err := s.appendRecord(record.Discard(key)); err != nil {
		return err
	}
	delete(s.index, key)
	s.uncompacted += 2
	s.observe("rm", nil)
	return s.maybeCompactLocked()
}

// appendRecord writes rec to the active segment, rotating to a fresh
// segment first if the active one has reached MaxSegmentSize.
func (s *Store) appendRecord(rec record.Record) (segment.Position, error) {
	if s.activeWriter.TotalSize() >= s.maxSegmentSize {
		if err := s.rotateLocked(); err != nil {
			return segment.Position{}, err
		}
	}
	return s.activeWriter.AppendRecord(rec)
}

// rotateLocked seals the active segment and opens a fresh one as the new
// active segment. It writes the manifest immediately after rotating, so the
// frozen index covers every sealed segment and Open only has to replay the
// active one. Callers must hold s.mu.
func (s *Store) rotateLocked() error {
	if err := s.activeWriter.Close(); err != nil {
		return err
	}
	r, err := segment.NewReader(s.dataDir, s.activeSegmentID)
	if err != nil {
		return err
	}
	s.readers[s.activeSegmentID] = r

	next := s.nextSegmentIDLocked(s.activeSegmentID)
	w, err := segment.NewWriter(s.dataDir, next)
	if err != nil {
		return err
	}
	activeReader, err := segment.NewReader(s.dataDir, next)
	if err != nil {
		return err
	}
	s.activeWriter = w
	s.activeSegmentID = next
	s.readers[next] = activeReader

	return writeManifest(s.dataDir, s.index, s.uncompacted, s.compactionThreshold)
}

// nextSegmentIDLocked allocates the next segment ID cyclically modulo
// segment.MaxID (spec.md section 9), skipping any ID still in use.
func (s *Store) nextSegmentIDLocked(current segment.ID) segment.ID {
	id := current
	for i := segment.ID(0); i < segment.MaxID; i++ {
		id = (id + 1) % segment.MaxID
		if _, inUse := s.readers[id]; !inUse {
			return id
		}
	}
	// Exhausted the entire ID space; this would require 2^16 live segments
	// simultaneously, which compaction's doubling threshold makes
	// unreachable in practice.
	return id
}

// maybeCompactLocked runs compaction if the uncompacted counter exceeds the
// configured threshold. Callers must hold s.mu for writing.
func (s *Store) maybeCompactLocked() error {
	if s.uncompacted <= s.compactionThreshold {
		return nil
	}
	return s.compactLocked()
}

// Flush ensures the active segment's buffered writes are durable.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeWriter.Flush()
}

// Close flushes and releases every open file handle. The store must not be
// used after Close returns.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if err := s.activeWriter.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, r := range s.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.log.Infow("store closed", "data_dir", s.dataDir)
	return firstErr
}

func (s *Store) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.OpsTotal.WithLabelValues(op, outcome).Inc()
	s.metrics.Uncompacted.Set(float64(s.uncompacted))
}

func sortedIDs(ids []segment.ID) []segment.ID {
	out := append([]segment.ID(nil), ids...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
