package store

import (
	"context"

	"kvs/internal/segment"
)

// compactLocked drains the live index into one or more fresh segments,
// discarding every dead (overwritten or removed) record, then swaps the old
// segment set out for the new one. Grounded on the compaction pass in
// _examples/gtarraga-kv-store/v4_indexed/compaction.go, adapted to double
// the threshold after each run and persist the frozen-index manifest before
// old segment files are deleted (spec.md section 4.3/section 9).
//
// Callers must hold s.mu for writing.
func (s *Store) compactLocked() error {
	_, span := s.tracer.Start(context.Background(), "store.compact")
	defer span.End()

	oldReaders := s.readers

	if err := s.activeWriter.Close(); err != nil {
		return err
	}

	newIndex := make(map[string]segment.Position, len(s.index))
	newReaders := make(map[segment.ID]*segment.Reader)

	lastSealedID := s.activeSegmentID
	nextID := s.nextSegmentIDLocked(lastSealedID)
	writer, err := segment.NewWriter(s.dataDir, nextID)
	if err != nil {
		return err
	}

	sealAndOpenNext := func(w *segment.Writer) (*segment.Writer, error) {
		if err := w.Close(); err != nil {
			return nil, err
		}
		sealedReader, err := segment.NewReader(s.dataDir, w.ID())
		if err != nil {
			return nil, err
		}
		newReaders[w.ID()] = sealedReader

		id := s.nextSegmentIDLocked(w.ID())
		return segment.NewWriter(s.dataDir, id)
	}

	for key, pos := range s.index {
		src, ok := oldReaders[pos.SegmentID]
		if !ok {
			src, ok = newReaders[pos.SegmentID]
			if !ok {
				continue
			}
		}
		line, err := src.ReadLineAt(pos.Offset)
		if err != nil {
			return err
		}

		if writer.TotalSize() >= s.maxSegmentSize {
			writer, err = sealAndOpenNext(writer)
			if err != nil {
				return err
			}
		}

		newPos, err := writer.AppendRaw(line)
		if err != nil {
			return err
		}
		newIndex[key] = newPos
	}

	activeReader, err := segment.NewReader(s.dataDir, writer.ID())
	if err != nil {
		return err
	}
	newReaders[writer.ID()] = activeReader

	s.index = newIndex
	s.activeWriter = writer
	s.activeSegmentID = writer.ID()
	s.uncompacted = 0
	s.compactionThreshold *= 2
	s.readers = newReaders

	if err := writeManifest(s.dataDir, s.index, s.uncompacted, s.compactionThreshold); err != nil {
		return err
	}

	for id, r := range oldReaders {
		if _, stillLive := newReaders[id]; stillLive {
			continue
		}
		if err := r.DeleteFile(); err != nil {
			return err
		}
	}

	if s.metrics != nil {
		s.metrics.Compactions.Inc()
		s.metrics.Uncompacted.Set(0)
	}
	s.log.Infow("compaction complete", "keys", len(s.index), "next_threshold", s.compactionThreshold, "active_segment", s.activeSegmentID)

	return s.activeWriter.Flush()
}
