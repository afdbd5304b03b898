package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kvs/internal/kverrors"
)

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(Config{
		DataDir:             dir,
		MaxSegmentSize:      1 << 20,
		CompactionThreshold: 64,
	})
	require.NoError(t, err)
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))

	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	_, ok, err = s.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOverwrite(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()

	require.NoError(t, s.Set("k", "v1"))
	require.NoError(t, s.Set("k", "v2"))

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)
}

func TestRemove(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()

	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Remove("k"))

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveMissingKeyIsError(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()

	err := s.Remove("nope")
	require.Error(t, err)
	require.True(t, kverrors.IsKeyNotFound(err))
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s := openTestStore(t, dir)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Close())

	s2 := openTestStore(t, dir)
	defer s2.Close()

	_, ok, err := s2.Get("a")
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := s2.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestCompactionDoublesThresholdAndKeepsValue(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{
		DataDir:             dir,
		MaxSegmentSize:      1 << 20,
		CompactionThreshold: 4,
	})
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Set("k", "v"))
	}

	require.Greater(t, s.compactionThreshold, 4)
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestCompactionPreservesDataAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{
		DataDir:             dir,
		MaxSegmentSize:      1 << 20,
		CompactionThreshold: 4,
	})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Set("k", "v"))
	}
	require.NoError(t, s.Set("other", "x"))
	require.NoError(t, s.Close())

	s2 := openTestStore(t, dir)
	defer s2.Close()

	v, ok, err := s2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	v, ok, err = s2.Get("other")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", v)
}

func TestSegmentRotation(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{
		DataDir:             dir,
		MaxSegmentSize:      64,
		CompactionThreshold: 1 << 20,
	})
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Set("key-that-is-reasonably-long", "value-that-is-also-long"))
	}
	require.Greater(t, len(s.readers), 1)

	v, ok, err := s.Get("key-that-is-reasonably-long")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value-that-is-also-long", v)
}

func TestSegmentRotationSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{
		DataDir:             dir,
		MaxSegmentSize:      64,
		CompactionThreshold: 1 << 20,
	})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Set("key-that-is-reasonably-long", "value-that-is-also-long"))
	}
	require.NoError(t, s.Close())

	s2 := openTestStore(t, dir)
	defer s2.Close()

	v, ok, err := s2.Get("key-that-is-reasonably-long")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value-that-is-also-long", v)
}
