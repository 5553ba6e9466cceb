package export

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	ArchivePrefix        = "family_photos"
	PendingArchivePrefix = "new_family_photos"
)

// UniqueName returns candidate if it is not in existing, otherwise the first
// free "base_N.ext" with N counting up from 2. existing is not modified.
func UniqueName(existing map[string]struct{}, candidate string) string {
	if _, taken := existing[candidate]; !taken {
		return candidate
	}

	base, ext := splitExt(candidate)
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s_%d%s", base, n, ext)
		if _, taken := existing[name]; !taken {
			return name
		}
	}
}

// EntryNames maps candidates to archive entry names in order, renaming
// collisions with UniqueName.
func EntryNames(candidates []string) []string {
	existing := make(map[string]struct{}, len(candidates))
	names := make([]string, len(candidates))
	for i, candidate := range candidates {
		name := UniqueName(existing, candidate)
		existing[name] = struct{}{}
		names[i] = name
	}
	return names
}

func ArchiveName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s.zip", prefix, at.Format("20060102_150405"))
}

func splitExt(name string) (string, string) {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		return name, ""
	}
	return base, ext
}
