// Package inspect renders a skilllog report for the terminal.
package inspect

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/segmentio/encoding/json"

	"github.com/hazyhaar/skilllog/horosafe"
	"github.com/hazyhaar/skilllog/logstore"
)

// Options controls Render.
type Options struct {
	// Width wraps messages. Default: 100.
	Width int
	// Frames is the number of trace frames shown per record. Default: 1.
	Frames int
	// NoSnapshot hides the snapshot outline.
	NoSnapshot bool
}

func (o *Options) defaults() {
	if o.Width <= 0 {
		o.Width = 100
	}
	if o.Frames <= 0 {
		o.Frames = 1
	}
}

var md = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// Outline converts snapshot markup to markdown. The redacted text is
// filler, so the outline shows the page structure.
func Outline(markup string) (string, error) {
	out, err := md.ConvertString(markup)
	if err != nil {
		return "", fmt.Errorf("inspect: outline: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// MaxReportSize caps the size of a report read by Load and Read.
const MaxReportSize = 64 << 20

// Load reads a report file.
func Load(path string) (logstore.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return logstore.Report{}, fmt.Errorf("inspect: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a report from r.
func Read(r io.Reader) (logstore.Report, error) {
	data, err := horosafe.LimitedReadAll(r, MaxReportSize)
	if err != nil {
		return logstore.Report{}, fmt.Errorf("inspect: %w", err)
	}
	var rep logstore.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return logstore.Report{}, fmt.Errorf("inspect: parse report: %w", err)
	}
	return rep, nil
}

// Render writes a terminal view of r to w.
func Render(w io.Writer, r logstore.Report, opts Options) error {
	opts.defaults()
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", r.SkillInfo.Name, r.SkillInfo.Version)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("skill %s · logger %s · started %s",
		r.SkillInfo.Identifier, r.Version, stamp(r.Initialized).Format(time.RFC3339))))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s %s · %dx%d",
		r.BrowserInfo.UserAgent, r.BrowserInfo.Version, r.BrowserInfo.Width, r.BrowserInfo.Height)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Logs (%d)", len(r.Logs))))
	b.WriteString("\n")
	for _, rec := range r.Logs {
		writeRecord(&b, rec, opts)
	}

	if r.Snapshot != "" && !opts.NoSnapshot {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Snapshot"))
		b.WriteString("\n")
		outline, err := Outline(r.Snapshot)
		if err != nil {
			outline = r.Snapshot
		}
		b.WriteString(wordwrap.String(outline, opts.Width))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRecord(b *strings.Builder, rec logstore.Record, opts Options) {
	const pad = 2

	fmt.Fprintf(b, "%s %s %s\n",
		dimStyle.Render(stamp(rec.Timestamp).UTC().Format("15:04:05.000")),
		badge(rec.Type),
		dimStyle.Render(rec.URL))

	msg := wordwrap.String(FormatMessage(rec.Message), opts.Width-pad)
	b.WriteString(indent.String(msg, pad))
	b.WriteString("\n")

	for i, f := range rec.Trace {
		if i >= opts.Frames {
			break
		}
		b.WriteString(indent.String(dimStyle.Render("at "+f), pad))
		b.WriteString("\n")
	}
	if rec.Snapshot != "" {
		b.WriteString(indent.String(dimStyle.Render("(snapshot attached)"), pad))
		b.WriteString("\n")
	}
}

// FormatMessage joins message values with spaces: strings as they are,
// everything else as JSON.
func FormatMessage(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			parts[i] = s
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			parts[i] = fmt.Sprint(v)
			continue
		}
		parts[i] = string(data)
	}
	return strings.Join(parts, " ")
}

func stamp(ms int64) time.Time {
	return time.UnixMilli(ms)
}
