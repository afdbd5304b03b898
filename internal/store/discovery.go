package store

import (
	"os"
	"regexp"
	"strconv"

	"kvs/internal/kverrors"
	"kvs/internal/segment"
)

var segmentFileRe = regexp.MustCompile(`^(\d{5})\.log$`)

// discoverSegments lists every segment ID present in dataDir by parsing the
// numeric stem of each *.log file, per spec.md section 4.3's open/recovery
// algorithm.
func discoverSegments(dataDir string) ([]segment.ID, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, kverrors.IO("read data directory", err).WithKey(dataDir)
	}
	var ids []segment.ID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := segmentFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, segment.ID(n))
	}
	return ids, nil
}

func maxSegmentID(ids []segment.ID) segment.ID {
	var max segment.ID
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max
}
