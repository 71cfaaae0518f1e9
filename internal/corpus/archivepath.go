package corpus

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ParsedArchivePath is what ParseArchivePath extracts from one
// feature_files entry: HTK/CNTK-style script lines of the form
//
//	uttkey=/path/to/archive.feat[first,last]
//
// where first/last are zero-based inclusive frame indices into the
// archive. The "uttkey=" prefix is optional; when absent the key is the
// archive's base file name with its extension stripped. The "[first,
// last]" suffix is mandatory — it is the frame-count information spec §4.1
// says the path must encode, and this package never opens the feature
// file during corpus construction to discover it.
type ParsedArchivePath struct {
	Key       string
	Path      string
	NumFrames int
}

// ParseArchivePath parses one feature_files entry.
func ParseArchivePath(entry string) (ParsedArchivePath, error) {
	key := ""
	rest := entry
	if idx := strings.IndexByte(entry, '='); idx >= 0 {
		key = entry[:idx]
		rest = entry[idx+1:]
	}

	open := strings.LastIndexByte(rest, '[')
	if open < 0 || !strings.HasSuffix(rest, "]") {
		return ParsedArchivePath{}, fmt.Errorf("corpus: archive path %q missing [first,last] frame range", entry)
	}
	path := rest[:open]
	rangeStr := rest[open+1 : len(rest)-1]

	comma := strings.IndexByte(rangeStr, ',')
	if comma < 0 {
		return ParsedArchivePath{}, fmt.Errorf("corpus: archive path %q has malformed frame range %q", entry, rangeStr)
	}
	first, err := strconv.Atoi(strings.TrimSpace(rangeStr[:comma]))
	if err != nil {
		return ParsedArchivePath{}, fmt.Errorf("corpus: archive path %q has non-numeric range start: %w", entry, err)
	}
	last, err := strconv.Atoi(strings.TrimSpace(rangeStr[comma+1:]))
	if err != nil {
		return ParsedArchivePath{}, fmt.Errorf("corpus: archive path %q has non-numeric range end: %w", entry, err)
	}
	if last < first {
		return ParsedArchivePath{}, fmt.Errorf("corpus: archive path %q has range end before start", entry)
	}

	if key == "" {
		base := filepath.Base(path)
		key = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return ParsedArchivePath{
		Key:       key,
		Path:      path,
		NumFrames: last - first + 1,
	}, nil
}
