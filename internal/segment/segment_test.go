package segment

import (
	"testing"

	"github.com/stretchr/testify/require"
	"kvs/internal/record"
)

func TestWriterAppendAndReaderRead(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, 0)
	require.NoError(t, err)

	pos1, err := w.AppendRecord(record.Insertion("key1", "value1"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), pos1.Offset)

	pos2, err := w.AppendRecord(record.Insertion("key2", "value2"))
	require.NoError(t, err)
	require.True(t, pos2.Offset > pos1.Offset)

	require.NoError(t, w.Flush())

	r, err := NewReader(dir, 0)
	require.NoError(t, err)
	defer r.Close()

	got1, err := r.ReadRecordAt(pos1.Offset)
	require.NoError(t, err)
	require.Equal(t, record.Insertion("key1", "value1"), got1)

	got2, err := r.ReadRecordAt(pos2.Offset)
	require.NoError(t, err)
	require.Equal(t, record.Insertion("key2", "value2"), got2)
}

func TestIteratorRestartable(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 1)
	require.NoError(t, err)
	_, err = w.AppendRecord(record.Insertion("a", "1"))
	require.NoError(t, err)
	_, err = w.AppendRecord(record.Discard("a"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(dir, 1)
	require.NoError(t, err)
	defer r.Close()

	for pass := 0; pass < 2; pass++ {
		it, err := r.Iter()
		require.NoError(t, err)

		var entries []Entry
		for {
			e, ok := it.Next()
			if !ok {
				break
			}
			entries = append(entries, e)
		}
		require.NoError(t, it.Err())
		require.NoError(t, it.Close())
		require.Len(t, entries, 2)
		require.Equal(t, record.TagInsertion, entries[0].Record.Tag)
		require.Equal(t, record.TagDiscard, entries[1].Record.Tag)
	}
}

func TestReaderCloneIndependentSeek(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 2)
	require.NoError(t, err)
	pos1, err := w.AppendRecord(record.Insertion("a", "1"))
	require.NoError(t, err)
	pos2, err := w.AppendRecord(record.Insertion("b", "2"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(dir, 2)
	require.NoError(t, err)
	defer r.Close()

	clone, err := r.Clone()
	require.NoError(t, err)
	defer clone.Close()

	got2, err := clone.ReadRecordAt(pos2.Offset)
	require.NoError(t, err)
	require.Equal(t, "2", got2.Value)

	got1, err := r.ReadRecordAt(pos1.Offset)
	require.NoError(t, err)
	require.Equal(t, "1", got1.Value)
}

func TestDeleteFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 3)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(dir, 3)
	require.NoError(t, err)
	require.NoError(t, r.DeleteFile())

	_, err = NewReader(dir, 3)
	require.Error(t, err)
}
