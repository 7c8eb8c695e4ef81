package backup

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// timestampLayout sorts lexicographically in chronological order.
const timestampLayout = "20060102T150405.000000000"

var (
	suffixPattern = regexp.MustCompile(`^\d{8}T\d{6}\.\d{9}-\d{6}$`)

	// seq breaks ties between backups taken within the same clock tick.
	seq atomic.Uint64
)

// Entry is one timestamp-suffixed copy of a workspace file.
type Entry struct {
	Name    string    `json:"name"` // Original name relative to the workspace root
	Path    string    `json:"path"` // Absolute path of the copy
	Created time.Time `json:"created"`
}

func newSuffix(now time.Time) string {
	return fmt.Sprintf("%s-%06d", now.UTC().Format(timestampLayout), seq.Add(1)%1_000_000)
}

// splitBackupName returns the suffix of a backup file name for base, or false
// if the file is not one of base's backups.
func splitBackupName(fileName, base string) (string, bool) {
	prefix := base + "_"
	if !strings.HasPrefix(fileName, prefix) {
		return "", false
	}
	suffix := fileName[len(prefix):]
	if !suffixPattern.MatchString(suffix) {
		return "", false
	}
	return suffix, true
}

func parseSuffix(suffix string) time.Time {
	ts, _, _ := strings.Cut(suffix, "-")
	t, err := time.Parse(timestampLayout, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
