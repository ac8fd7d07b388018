package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/skilllog/logstore"
)

func TestFileName(t *testing.T) {
	got := FileName(time.UnixMilli(1708700000123))
	if got != "mw-error-log-1708700000123.json" {
		t.Fatalf("FileName: got %q", got)
	}
}

func TestToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	store := logstore.New(logstore.Metadata{})
	store.Append(logstore.Record{Type: logstore.TypeWarn, Message: []any{"careful"}})

	path, err := toFile(store, dir, time.UnixMilli(42))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "mw-error-log-42.json" || filepath.Dir(path) != dir {
		t.Fatalf("path: got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"careful"`) {
		t.Fatalf("file content: %s", data)
	}
}

func TestToFile_DefaultName(t *testing.T) {
	path, err := ToFile(logstore.New(logstore.Metadata{}), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, ".json") {
		t.Fatalf("name: got %q", name)
	}
}

func TestToFile_Uninitialized(t *testing.T) {
	if _, err := ToFile(nil, t.TempDir()); err == nil {
		t.Fatal("expected error for nil store")
	}
}
