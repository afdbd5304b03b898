package segment

import (
	"bufio"
	"os"

	"kvs/internal/kverrors"
	"kvs/internal/record"
)

// Writer appends records to one segment file. A Writer is opened once per
// segment ID and always appends; it is never used for random access.
type Writer struct {
	id        ID
	path      string
	file      *os.File
	buf       *bufio.Writer
	totalSize int64
}

// NewWriter opens (creating if necessary) the segment file for id under
// dataDir in append mode.
func NewWriter(dataDir string, id ID) (*Writer, error) {
	path := Path(dataDir, id)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, kverrors.IO("open segment for append", err).WithKey(path)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, kverrors.IO("stat segment", err).WithKey(path)
	}
	return &Writer{
		id:        id,
		path:      path,
		file:      file,
		buf:       bufio.NewWriter(file),
		totalSize: info.Size(),
	}, nil
}

// ID returns the segment ID this writer appends to.
func (w *Writer) ID() ID { return w.id }

// TotalSize returns the number of bytes written to the segment so far,
// including bytes written before this process opened it.
func (w *Writer) TotalSize() int64 { return w.totalSize }

// AppendRecord serializes rec via the record codec and appends it, returning
// the position of the first byte written.
func (w *Writer) AppendRecord(rec record.Record) (Position, error) {
	line, err := record.Encode(rec)
	if err != nil {
		return Position{}, kverrors.IO("encode record", err)
	}
	return w.AppendRaw(line)
}

// AppendRaw appends an already-serialized line verbatim, skipping
// re-serialization, and hands it to the OS (without fsync) so readers with
// their own file handle can see it. Used by compaction to copy live records
// without decoding and re-encoding them.
func (w *Writer) AppendRaw(line []byte) (Position, error) {
	start := w.totalSize
	n, err := w.buf.Write(line)
	if err == nil {
		err = w.buf.Flush()
	}
	if err != nil {
		return Position{}, kverrors.IO("append to segment", err).WithKey(w.path)
	}
	w.totalSize += int64(n)
	return Position{SegmentID: w.id, Offset: uint64(start)}, nil
}

// Flush forces buffered bytes to the OS and fsyncs them to stable storage.
// A Writer must be flushed before it is considered closed (spec.md
// section 4.1).
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return kverrors.IO("flush segment buffer", err).WithKey(w.path)
	}
	if err := w.file.Sync(); err != nil {
		return kverrors.IO("fsync segment", err).WithKey(w.path)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.file.Close(); err != nil {
		return kverrors.IO("close segment", err).WithKey(w.path)
	}
	return nil
}
