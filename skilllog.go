// Package skilllog is the diagnostic logger of a browser-automation skill.
//
// Use installs the logger on a page: every call to the skill's console is
// recorded with its time, stack trace and page URL, and every error also
// captures a redacted snapshot of the page. The record is exported with
// JSON, Download or Send.
//
//	lg, err := skilllog.Use(ctx, tab, logstore.SkillInfo{Identifier: "checkout", Name: "Checkout", Version: "1.0.0"})
//	if err != nil { ... }
//	defer lg.Close()
//	console.Default.Error(err)
//	path, _ := lg.Download("reports")
package skilllog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/skilllog/console"
	"github.com/hazyhaar/skilllog/export"
	"github.com/hazyhaar/skilllog/intercept"
	"github.com/hazyhaar/skilllog/logstore"
)

// ErrUninitialized is returned when the logger is used before Use.
var ErrUninitialized = logstore.ErrUninitialized

// Host is the page a skill runs on.
type Host interface {
	intercept.Page
	intercept.Snapshotter
	BrowserInfo(ctx context.Context) (logstore.BrowserInfo, error)
}

// PageEvents is implemented by hosts that can stream the page's own
// console output and uncaught exceptions.
type PageEvents interface {
	WatchConsole(ctx context.Context, fn func(intercept.Message)) error
}

type options struct {
	console           *console.Console
	logger            *slog.Logger
	captureTimeout    time.Duration
	perRecordSnapshot bool
	pageConsole       bool
	uploader          *export.Uploader
}

// Option configures Use.
type Option func(*options)

// WithConsole intercepts c instead of console.Default.
func WithConsole(c *console.Console) Option {
	return func(o *options) { o.console = c }
}

// WithLogger sets the logger for the logger's own diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCaptureTimeout bounds each snapshot capture. Default: 10s.
func WithCaptureTimeout(d time.Duration) Option {
	return func(o *options) { o.captureTimeout = d }
}

// WithPerRecordSnapshot also attaches the snapshot to each error record.
func WithPerRecordSnapshot(on bool) Option {
	return func(o *options) { o.perRecordSnapshot = on }
}

// WithPageConsole controls recording of the page's own console when the
// host supports it. Default: on.
func WithPageConsole(on bool) Option {
	return func(o *options) { o.pageConsole = on }
}

// WithUploader sets the uploader used by Send.
func WithUploader(u *export.Uploader) Option {
	return func(o *options) { o.uploader = u }
}

// Logger is an initialised diagnostic logger.
type Logger struct {
	store    *logstore.Store
	session  *intercept.Session
	uploader *export.Uploader
	logger   *slog.Logger
}

var (
	current   *Logger
	currentMu sync.RWMutex
)

func setCurrent(l *Logger) {
	currentMu.Lock()
	current = l
	currentMu.Unlock()
}

// Current returns the logger registered by the last Use.
func Current() (*Logger, error) {
	currentMu.RLock()
	defer currentMu.RUnlock()
	if current == nil {
		return nil, ErrUninitialized
	}
	return current, nil
}

// Use initialises the logger for skill on host and starts recording. The
// console is restored when ctx is cancelled or Close is called. A nil host
// records without page URL, browser info or snapshots.
func Use(ctx context.Context, host Host, skill logstore.SkillInfo, opts ...Option) (*Logger, error) {
	o := options{pageConsole: true}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.uploader == nil {
		o.uploader = export.NewUploader(export.WithLogger(o.logger))
	}

	var info logstore.BrowserInfo
	cfg := intercept.Config{
		Console:           o.console,
		CaptureTimeout:    o.captureTimeout,
		PerRecordSnapshot: o.perRecordSnapshot,
		Logger:            o.logger,
	}
	if host != nil {
		var err error
		info, err = host.BrowserInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("skilllog: browser info: %w", err)
		}
		cfg.Page = host
		cfg.Snapshotter = host
	}

	o.logger.Debug("skilllog: creating logger",
		"skill", skill.Identifier, "skill_name", skill.Name, "skill_version", skill.Version,
		"user_agent", info.UserAgent, "browser_version", info.Version,
		"height", info.Height, "width", info.Width)

	store := logstore.New(logstore.Metadata{Skill: skill, Browser: info})
	cfg.Store = store
	session := intercept.New(cfg)
	if err := session.Install(ctx); err != nil {
		return nil, fmt.Errorf("skilllog: %w", err)
	}

	if pe, ok := host.(PageEvents); ok && o.pageConsole {
		if err := pe.WatchConsole(ctx, session.Observe); err != nil {
			o.logger.Warn("skilllog: page console unavailable", "error", err)
		}
	}

	l := &Logger{store: store, session: session, uploader: o.uploader, logger: o.logger}
	setCurrent(l)
	return l, nil
}

// Store returns the underlying log store.
func (l *Logger) Store() *logstore.Store {
	if l == nil {
		return nil
	}
	return l.store
}

// Report returns the accumulated report.
func (l *Logger) Report() (logstore.Report, error) {
	return l.Store().Report()
}

// JSON returns the report serialised as JSON.
func (l *Logger) JSON() (string, error) {
	return export.String(l.Store())
}

// Download writes the report into dir and returns the file path.
func (l *Logger) Download(dir string) (string, error) {
	path, err := export.ToFile(l.Store(), dir)
	if err != nil {
		return "", err
	}
	if l != nil {
		l.logger.Info("skilllog: report written", "path", path)
	}
	return path, nil
}

// Send uploads the report to endpoint (the uploader's endpoint when empty)
// and reports whether the collector accepted it.
func (l *Logger) Send(ctx context.Context, endpoint string) bool {
	if l == nil {
		return false
	}
	return l.uploader.Upload(ctx, l.store, endpoint)
}

// Close stops recording and restores the console. The report stays
// readable.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.session.Uninstall()
}

// JSONReport returns the report of the current logger as JSON.
func JSONReport() (string, error) {
	l, err := Current()
	if err != nil {
		return "", err
	}
	return l.JSON()
}

// DownloadReport writes the report of the current logger into dir.
func DownloadReport(dir string) (string, error) {
	l, err := Current()
	if err != nil {
		return "", err
	}
	return l.Download(dir)
}

// SendLogs uploads the report of the current logger. endpoint may be empty.
func SendLogs(ctx context.Context, endpoint string) bool {
	l, err := Current()
	if err != nil {
		return false
	}
	return l.Send(ctx, endpoint)
}
