// Package guard implements the engine-type guard (spec.md section 4.9: C9):
// a data directory is tagged with the engine backend it was created for, and
// reopening it with a different backend is a fatal startup error. Grounded
// on read_from_mark_file/ENGINE_MARK_FILE in
// _examples/original_source/src/bin/kvs-server.rs.
package guard

import (
	"os"
	"path/filepath"
	"strings"

	"kvs/internal/kverrors"
	"kvs/pkg/engine"
)

const markFileName = ".engine_mark"

// Check reads dataDir's engine mark, if any, and compares it against want.
// If no mark file exists, one is written recording want. If a mark exists
// and disagrees with want, it returns a Startup error and leaves the mark
// file untouched.
func Check(dataDir string, want engine.Type) error {
	path := filepath.Join(dataDir, markFileName)

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return writeMark(path, want)
	case err != nil:
		return kverrors.IO("read engine mark", err).WithKey(path)
	}

	prev, parseErr := engine.ParseType(strings.TrimSpace(string(data)))
	if parseErr != nil {
		return kverrors.Startup("malformed engine mark file", parseErr).WithKey(path)
	}
	if prev != want {
		return kverrors.Startup(
			"mismatched engine type: directory was created with \""+string(prev)+"\", requested \""+string(want)+"\"",
			nil,
		).WithKey(dataDir)
	}
	return nil
}

func writeMark(path string, t engine.Type) error {
	if err := os.WriteFile(path, []byte(t.String()), 0o644); err != nil {
		return kverrors.IO("write engine mark", err).WithKey(path)
	}
	return nil
}
