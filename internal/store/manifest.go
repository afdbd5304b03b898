package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"kvs/internal/kverrors"
	"kvs/internal/segment"
)

const manifestFileName = ".dumpfile"

// manifestEntry is the wire shape of one frozen index entry.
type manifestEntry struct {
	FileID uint32 `json:"file_id"`
	Pos    uint64 `json:"pos"`
}

// manifest is the recovery metadata persisted to .dumpfile (spec.md
// section 6): the frozen index plus the uncompacted counter and
// compaction threshold in effect when it was written.
type manifest struct {
	CompactionThreshold int                      `json:"compaction_threshold"`
	FrozenIndex         map[string]manifestEntry `json:"frozen_idx_map"`
	UncompactedSize     int                      `json:"uncompacted_size"`
}

func manifestPath(dataDir string) string {
	return filepath.Join(dataDir, manifestFileName)
}

func loadManifest(dataDir string) (*manifest, bool, error) {
	path := manifestPath(dataDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, kverrors.IO("read recovery metadata", err).WithKey(path)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, kverrors.Startup("malformed recovery metadata", err)
	}
	return &m, true, nil
}

// writeManifest replaces .dumpfile by writing a temporary file and renaming
// it over the old one. Per spec.md section 4.3's
// compaction algorithm, metadata is written before old segment files are
// deleted, so a crash between the two leaves consistent metadata plus
// orphan segments rather than consistent segments plus stale metadata.
func writeManifest(dataDir string, index map[string]segment.Position, uncompacted, threshold int) error {
	m := manifest{
		CompactionThreshold: threshold,
		UncompactedSize:     uncompacted,
		FrozenIndex:         make(map[string]manifestEntry, len(index)),
	}
	for k, pos := range index {
		m.FrozenIndex[k] = manifestEntry{FileID: uint32(pos.SegmentID), Pos: pos.Offset}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return kverrors.IO("encode recovery metadata", err)
	}
	path := manifestPath(dataDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return kverrors.IO("write recovery metadata", err).WithKey(tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return kverrors.IO("install recovery metadata", err).WithKey(path)
	}
	return nil
}
