package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/skilllog/logstore"
	"github.com/hazyhaar/skilllog/redact"
)

// Tab is a page a skill runs on. It reports its location and browser,
// captures redacted snapshots and streams the page's own console.
type Tab struct {
	Page     *rod.Page
	redactor *redact.Redactor
	logger   *slog.Logger
}

// TabOption configures a Tab.
type TabOption func(*Tab)

// WithRedactor sets the redactor applied to snapshots. Default: redact.New().
func WithRedactor(r *redact.Redactor) TabOption {
	return func(t *Tab) { t.redactor = r }
}

// WithTabLogger sets a custom logger.
func WithTabLogger(l *slog.Logger) TabOption {
	return func(t *Tab) { t.logger = l }
}

// Attach wraps an existing Rod page.
func Attach(page *rod.Page, opts ...TabOption) *Tab {
	t := &Tab{Page: page}
	for _, o := range opts {
		o(t)
	}
	if t.redactor == nil {
		t.redactor = redact.New()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// OpenTab creates a new tab on the manager's browser, applies stealth and
// resource blocking, then navigates to pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, level StealthLevel, opts ...TabOption) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if level >= LevelHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	opts = append([]TabOption{WithTabLogger(mgr.cfg.Logger)}, opts...)
	return Attach(page, opts...), nil
}

// URL returns the current location of the page, empty when the target is gone.
func (t *Tab) URL() string {
	info, err := t.Page.Info()
	if err != nil {
		t.logger.Debug("browser: page info", "error", err)
		return ""
	}
	return info.URL
}

const viewportJS = `() => ({h: window.innerHeight, w: window.innerWidth})`

// BrowserInfo reads the user agent and product version of the browser and
// the viewport of the page.
func (t *Tab) BrowserInfo(ctx context.Context) (logstore.BrowserInfo, error) {
	p := t.Page.Context(ctx)

	ver, err := proto.BrowserGetVersion{}.Call(p)
	if err != nil {
		return logstore.BrowserInfo{}, fmt.Errorf("browser: get version: %w", err)
	}
	info := versionInfo(ver)

	res, err := p.Eval(viewportJS)
	if err != nil {
		return info, fmt.Errorf("browser: viewport: %w", err)
	}
	info.Height = res.Value.Get("h").Int()
	info.Width = res.Value.Get("w").Int()
	return info, nil
}

// versionInfo keeps the full product string, "HeadlessChrome/120.0.6099.71",
// so reports tell headless and headful runs apart.
func versionInfo(ver *proto.BrowserGetVersionResult) logstore.BrowserInfo {
	return logstore.BrowserInfo{
		UserAgent: ver.UserAgent,
		Version:   ver.Product,
	}
}

const bodyJS = `() => document.body ? document.body.innerHTML : ""`

// Snapshot returns the redacted markup of the page body.
func (t *Tab) Snapshot(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(bodyJS)
	if err != nil {
		return "", fmt.Errorf("browser: read body: %w", err)
	}
	return t.redactor.RedactMarkup(ctx, res.Value.Str())
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
