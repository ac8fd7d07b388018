// Package intercept records console output into a log store. A Session
// owns the original channel implementations of a console, swaps in
// recording wrappers on Install and puts the originals back on Uninstall
// or when its context is cancelled.
package intercept

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/skilllog/console"
	"github.com/hazyhaar/skilllog/logstore"
)

// ErrCancelled is returned by Install when the context is already done.
var ErrCancelled = errors.New("intercept: context already cancelled")

// callerSkip drops the frames between the recording code and the caller
// of a console method: record, the wrapper closure, the Console method.
const callerSkip = 3

// Page reports the location of the controlled page.
type Page interface {
	URL() string
}

// Snapshotter captures the redacted markup of the page.
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, error)
}

// Message is a console entry that did not go through the Go console:
// page console output, uncaught page exceptions.
type Message struct {
	Channel   console.Channel
	Args      []any
	Trace     []string
	Timestamp time.Time // zero = now
	URL       string    // empty = current page URL
}

// Config for creating a Session.
type Config struct {
	Store       *logstore.Store
	Console     *console.Console // default console.Default
	Page        Page             // nil = empty URLs
	Snapshotter Snapshotter      // nil = no snapshot on error

	// CaptureTimeout bounds a snapshot capture. Default: 10s.
	CaptureTimeout time.Duration

	// PerRecordSnapshot also attaches the snapshot to the error record.
	PerRecordSnapshot bool

	Logger *slog.Logger
	Now    func() time.Time
}

func (c *Config) defaults() {
	if c.Console == nil {
		c.Console = console.Default
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Session is one interception of a console.
type Session struct {
	cfg Config

	mu        sync.Mutex
	installed bool
	originals [len(console.Channels)]console.Func
	stopAfter func() bool
	// ctx is the Install context. Once it is done no call is recorded,
	// even before the AfterFunc swap has run.
	ctx context.Context
	// gen changes on every Install so captures that straddle an
	// Uninstall/Install cycle are recognised as stale.
	gen uint64
}

// New creates a Session. Call Install to start recording.
func New(cfg Config) *Session {
	cfg.defaults()
	return &Session{cfg: cfg}
}

// Install swaps recording wrappers into the five channels and arranges for
// Uninstall to run when ctx is cancelled. Installing twice is a no-op.
func (s *Session) Install(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.installed {
		if s.ctx.Err() == nil {
			return nil
		}
		// The previous context is done but its AfterFunc has not run yet.
		s.restore()
	}

	s.gen++
	for _, ch := range console.Channels {
		orig := s.cfg.Console.Func(ch)
		s.originals[ch] = orig
		s.cfg.Console.Swap(ch, s.wrap(ch, orig))
	}
	s.installed = true
	s.ctx = ctx
	gen := s.gen
	s.stopAfter = context.AfterFunc(ctx, func() { s.expire(gen) })

	s.cfg.Logger.Debug("intercept: installed", "console_channels", len(console.Channels))
	return nil
}

// Uninstall restores the original channel implementations. Only the first
// call after an Install has an effect.
func (s *Session) Uninstall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.installed {
		return
	}
	s.restore()
}

// expire uninstalls the installation gen when its context is done. A later
// Install may already have replaced it.
func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.installed || s.gen != gen {
		return
	}
	s.restore()
}

// restore must be called with s.mu held.
func (s *Session) restore() {
	for _, ch := range console.Channels {
		s.cfg.Console.Swap(ch, s.originals[ch])
		s.originals[ch] = nil
	}
	s.installed = false
	s.ctx = nil
	if s.stopAfter != nil {
		s.stopAfter()
		s.stopAfter = nil
	}

	s.cfg.Logger.Debug("intercept: uninstalled")
}

// Installed reports whether the session is recording: wrappers in place
// and the Install context not done.
func (s *Session) Installed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live()
}

// live must be called with s.mu held.
func (s *Session) live() bool {
	return s.installed && s.ctx.Err() == nil
}

// Observe records a message that did not go through the Go console and
// forwards it to the original channel. No-op once uninstalled.
func (s *Session) Observe(msg Message) {
	orig, gen, ok := s.original(msg.Channel)
	if !ok {
		return
	}

	at := msg.Timestamp
	if at.IsZero() {
		at = s.cfg.Now()
	}
	url := msg.URL
	if url == "" {
		url = s.pageURL()
	}
	trace := msg.Trace
	if trace == nil {
		trace = []string{}
	}
	args := append([]any(nil), msg.Args...)

	rec := logstore.Record{
		Type:      recordType(msg.Channel),
		Message:   args,
		Trace:     trace,
		Timestamp: at.UnixMilli(),
		URL:       url,
	}
	if msg.Channel == console.Error {
		s.attachSnapshot(&rec)
	}
	s.commit(gen, rec)
	orig(msg.Args...)
}

func (s *Session) wrap(ch console.Channel, orig console.Func) console.Func {
	if ch == console.Error {
		return func(args ...any) {
			s.recordError(args)
			orig(args...)
		}
	}
	return func(args ...any) {
		s.record(ch, args)
		orig(args...)
	}
}

func (s *Session) record(ch console.Channel, args []any) {
	gen, ok := s.generation()
	if !ok {
		return
	}
	at := s.cfg.Now()
	p := messageSequence(args)

	s.commit(gen, logstore.Record{
		Type:      recordType(ch),
		Message:   p.message(),
		Trace:     p.trace(callerSkip),
		Timestamp: at.UnixMilli(),
		URL:       s.pageURL(),
	})
}

// recordError blocks until the snapshot capture finishes (or times out) so
// the error record lands in invocation order for its goroutine.
func (s *Session) recordError(args []any) {
	gen, ok := s.generation()
	if !ok {
		return
	}
	at := s.cfg.Now()
	p := classify(args)

	rec := logstore.Record{
		Type:      logstore.TypeError,
		Message:   p.message(),
		Trace:     p.trace(callerSkip),
		Timestamp: at.UnixMilli(),
		URL:       s.pageURL(),
	}
	s.attachSnapshot(&rec)
	s.commit(gen, rec)
}

func (s *Session) attachSnapshot(rec *logstore.Record) {
	if s.cfg.Snapshotter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CaptureTimeout)
	defer cancel()

	markup, err := s.cfg.Snapshotter.Snapshot(ctx)
	if err != nil {
		s.cfg.Logger.Warn("intercept: snapshot capture failed", "error", err)
		return
	}
	rec.Snapshot = markup
}

// commit writes rec (and its snapshot) unless the session was uninstalled
// or reinstalled since the call started.
func (s *Session) commit(gen uint64, rec logstore.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live() || s.gen != gen {
		s.cfg.Logger.Debug("intercept: dropped record after uninstall", "type", rec.Type)
		return
	}

	if rec.Snapshot != "" {
		if err := s.cfg.Store.SetSnapshot(rec.Snapshot); err != nil {
			s.cfg.Logger.Error("intercept: set snapshot", "error", err)
		}
		if !s.cfg.PerRecordSnapshot {
			rec.Snapshot = ""
		}
	}
	if err := s.cfg.Store.Append(rec); err != nil {
		s.cfg.Logger.Error("intercept: append record", "error", err)
	}
}

func (s *Session) generation() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen, s.live()
}

func (s *Session) original(ch console.Channel) (console.Func, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live() {
		return nil, 0, false
	}
	return s.originals[ch], s.gen, true
}

func (s *Session) pageURL() string {
	if s.cfg.Page == nil {
		return ""
	}
	return s.cfg.Page.URL()
}

func recordType(ch console.Channel) logstore.Type {
	switch ch {
	case console.Error:
		return logstore.TypeError
	case console.Warn:
		return logstore.TypeWarn
	case console.Info:
		return logstore.TypeInfo
	case console.Debug:
		return logstore.TypeDebug
	}
	return logstore.TypeLog
}
