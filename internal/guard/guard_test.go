package guard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"kvs/internal/kverrors"
	"kvs/pkg/engine"
)

func TestCheckWritesMarkOnFirstOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Check(dir, engine.TypeKvs))

	data, err := os.ReadFile(filepath.Join(dir, markFileName))
	require.NoError(t, err)
	require.Equal(t, "kvs", string(data))
}

func TestCheckAcceptsMatchingEngine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Check(dir, engine.TypeKvs))
	require.NoError(t, Check(dir, engine.TypeKvs))
}

func TestCheckRejectsMismatchedEngine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Check(dir, engine.TypeKvs))

	err := Check(dir, engine.TypeSled)
	require.Error(t, err)
	require.Equal(t, kverrors.CodeStartup, kverrors.CodeOf(err))
}
