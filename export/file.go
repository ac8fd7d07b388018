package export

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hazyhaar/skilllog/horosafe"
	"github.com/hazyhaar/skilllog/logstore"
)

// FilePrefix starts every report file name.
const FilePrefix = "mw-error-log-"

// FileName returns the report file name for t: mw-error-log-<unix ms>.json.
func FileName(t time.Time) string {
	return FilePrefix + strconv.FormatInt(t.UnixMilli(), 10) + ".json"
}

// ToFile writes the report of store into dir, creating dir when needed,
// and returns the path of the written file.
func ToFile(store *logstore.Store, dir string) (string, error) {
	return toFile(store, dir, time.Now())
}

func toFile(store *logstore.Store, dir string, now time.Time) (string, error) {
	report, err := store.Report()
	if err != nil {
		return "", err
	}
	data, err := Serialize(report)
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	path, err := horosafe.SafePath(dir, FileName(now))
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write report: %w", err)
	}
	return path, nil
}
