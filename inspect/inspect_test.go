package inspect

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/skilllog/logstore"
)

func sampleReport() logstore.Report {
	return logstore.Report{
		SkillInfo:   logstore.SkillInfo{Identifier: "checkout", Name: "Checkout", Version: "1.2.0"},
		BrowserInfo: logstore.BrowserInfo{UserAgent: "HeadlessChrome", Version: "120.0", Height: 768, Width: 1024},
		Version:     logstore.FormatVersion,
		Initialized: 1708700000000,
		Logs: []logstore.Record{
			{Type: logstore.TypeInfo, Message: []any{"opening cart"}, Trace: []string{"main.run (main.go:12)", "main.main (main.go:5)"}, Timestamp: 1708700000100, URL: "https://shop.example.com/cart"},
			{Type: logstore.TypeError, Message: []any{"payment failed", map[string]any{"code": 402.0}}, Trace: []string{"main.pay (pay.go:40)"}, Timestamp: 1708700000200, URL: "https://shop.example.com/pay"},
		},
		Snapshot: "<h1>Lorem ipsum</h1><ul><li>Lorem</li><li>ipsum</li></ul>",
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), Options{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Checkout 1.2.0",
		"HeadlessChrome 120.0",
		"1024x768",
		"Logs (2)",
		"opening cart",
		`payment failed {"code":402}`,
		"at main.run (main.go:12)",
		"https://shop.example.com/pay",
		"Snapshot",
		"# Lorem ipsum",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "main.main") {
		t.Errorf("more frames than requested:\n%s", out)
	}
}

func TestRender_Options(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), Options{Frames: 5, NoSnapshot: true}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "main.main") {
		t.Errorf("Frames option ignored:\n%s", out)
	}
	if strings.Contains(out, "# Lorem ipsum") {
		t.Errorf("NoSnapshot ignored:\n%s", out)
	}
}

func TestOutline(t *testing.T) {
	got, err := Outline("<div><h2>Lorem</h2><p>ipsum dolor</p></div>")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "## Lorem") || !strings.Contains(got, "ipsum dolor") {
		t.Fatalf("Outline: got %q", got)
	}
}

func TestFormatMessage(t *testing.T) {
	got := FormatMessage([]any{"a", 1.5, nil, true, []any{"x"}})
	if got != `a 1.5 null true ["x"]` {
		t.Fatalf("got %q", got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mw-error-log-1.json")
	data := `{"skillInfo":{"identifier":"s","name":"S","version":"1"},"browserInfo":{"userAgent":"UA","version":"1","height":1,"width":2},"version":"1.3.0","initialized":5,"logs":[{"type":"warn","message":["w",2],"trace":[],"timestamp":6,"url":"u"}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.SkillInfo.Name != "S" || len(r.Logs) != 1 || r.Logs[0].Type != logstore.TypeWarn {
		t.Fatalf("Load: got %+v", r)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRead_Invalid(t *testing.T) {
	if _, err := Read(strings.NewReader("{not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
