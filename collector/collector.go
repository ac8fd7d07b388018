// Package collector is the upload target for skilllog reports: it accepts
// reports over HTTP, keeps them as JSON files and serves them back to
// people (HTTP) and agents (MCP).
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/segmentio/encoding/json"

	"github.com/hazyhaar/skilllog/horosafe"
	"github.com/hazyhaar/skilllog/idgen"
	"github.com/hazyhaar/skilllog/inspect"
	"github.com/hazyhaar/skilllog/logstore"
)

// ErrNotFound is returned for unknown report IDs.
var ErrNotFound = errors.New("collector: report not found")

// Config for creating a Collector.
type Config struct {
	Dir     string          // report directory, created if absent
	MaxBody int64           // upload size cap. Default: 10 MiB.
	NewID   idgen.Generator // default idgen.Default (UUIDv7)
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Dir == "" {
		c.Dir = "reports"
	}
	if c.MaxBody <= 0 {
		c.MaxBody = 10 << 20
	}
	if c.NewID == nil {
		c.NewID = idgen.Default
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Collector stores uploaded reports on disk.
type Collector struct {
	cfg    Config
	policy *bluemonday.Policy
}

// Summary describes a stored report.
type Summary struct {
	ID          string             `json:"id"`
	Skill       logstore.SkillInfo `json:"skill"`
	Initialized int64              `json:"initialized"`
	Records     int                `json:"records"`
	Errors      int                `json:"errors"`
	HasSnapshot bool               `json:"has_snapshot"`
}

// New creates a Collector and its report directory.
func New(cfg Config) (*Collector, error) {
	cfg.defaults()
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("collector: create dir: %w", err)
	}
	return &Collector{cfg: cfg, policy: bluemonday.UGCPolicy()}, nil
}

// Save validates data as a report and stores it under a new ID.
func (c *Collector) Save(_ context.Context, data []byte) (string, error) {
	var r logstore.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("collector: invalid report: %w", err)
	}
	if r.Version == "" {
		return "", fmt.Errorf("collector: invalid report: missing version")
	}
	for i, rec := range r.Logs {
		if !rec.Type.Valid() {
			return "", fmt.Errorf("collector: invalid report: logs[%d]: unknown type %q", i, rec.Type)
		}
	}

	id := c.cfg.NewID()
	path, err := c.path(id)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("collector: write: %w", err)
	}
	c.cfg.Logger.Info("collector: report stored",
		"id", id, "skill", r.SkillInfo.Identifier, "records", len(r.Logs), "snapshot", r.Snapshot != "")
	return id, nil
}

// Raw returns the stored JSON of a report.
func (c *Collector) Raw(_ context.Context, id string) ([]byte, error) {
	path, err := c.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("collector: read: %w", err)
	}
	return data, nil
}

// Get returns a stored report.
func (c *Collector) Get(ctx context.Context, id string) (logstore.Report, error) {
	data, err := c.Raw(ctx, id)
	if err != nil {
		return logstore.Report{}, err
	}
	var r logstore.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return logstore.Report{}, fmt.Errorf("collector: decode %s: %w", id, err)
	}
	return r, nil
}

// List summarises stored reports, newest first.
func (c *Collector) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(c.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("collector: list: %w", err)
	}

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		r, err := c.Get(ctx, id)
		if err != nil {
			c.cfg.Logger.Warn("collector: skip unreadable report", "id", id, "error", err)
			continue
		}
		out = append(out, summarize(id, r))
	}
	// UUIDv7 IDs sort by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Snapshot returns the snapshot of a report sanitised for display.
func (c *Collector) Snapshot(ctx context.Context, id string) (string, error) {
	r, err := c.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return c.policy.Sanitize(r.Snapshot), nil
}

// Outline returns the snapshot of a report as markdown.
func (c *Collector) Outline(ctx context.Context, id string) (string, error) {
	html, err := c.Snapshot(ctx, id)
	if err != nil {
		return "", err
	}
	return inspect.Outline(html)
}

func (c *Collector) path(id string) (string, error) {
	if err := horosafe.ValidateIdentifier(id); err != nil {
		return "", ErrNotFound
	}
	path, err := horosafe.SafePath(c.cfg.Dir, id+".json")
	if err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

func summarize(id string, r logstore.Report) Summary {
	s := Summary{
		ID:          id,
		Skill:       r.SkillInfo,
		Initialized: r.Initialized,
		Records:     len(r.Logs),
		HasSnapshot: r.Snapshot != "",
	}
	for _, rec := range r.Logs {
		if rec.Type == logstore.TypeError {
			s.Errors++
		}
	}
	return s
}
