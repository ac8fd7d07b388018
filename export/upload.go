package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/skilllog/logstore"
)

// DefaultEndpoint is the collector started by `skilllog collect` with its
// default address.
const DefaultEndpoint = "http://127.0.0.1:8787/api/logs"

// Uploader POSTs reports to a collector. A single attempt is made per call.
type Uploader struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithEndpoint sets the endpoint used when Upload gets none.
// Default: DefaultEndpoint.
func WithEndpoint(url string) UploaderOption {
	return func(u *Uploader) { u.endpoint = url }
}

// WithHTTPClient sets the HTTP client. Default: 10s timeout.
func WithHTTPClient(c *http.Client) UploaderOption {
	return func(u *Uploader) { u.client = c }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) UploaderOption {
	return func(u *Uploader) { u.logger = l }
}

// NewUploader creates an Uploader.
func NewUploader(opts ...UploaderOption) *Uploader {
	u := &Uploader{
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Upload sends the report of store to endpoint (or the uploader's endpoint
// when empty). It reports whether the collector answered 2xx; failures are
// logged, never returned.
func (u *Uploader) Upload(ctx context.Context, store *logstore.Store, endpoint string) bool {
	if endpoint == "" {
		endpoint = u.endpoint
	}

	report, err := store.Report()
	if err != nil {
		u.logger.Warn("export: upload: read store", "error", err)
		return false
	}
	body, err := Serialize(report)
	if err != nil {
		u.logger.Warn("export: upload: serialize", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		u.logger.Warn("export: upload: new request", "endpoint", endpoint, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.Warn("export: upload: request failed", "endpoint", endpoint, "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		u.logger.Warn("export: upload: bad status", "endpoint", endpoint, "status", resp.StatusCode)
		return false
	}
	u.logger.Debug("export: upload: sent", "endpoint", endpoint, "records", len(report.Logs))
	return true
}
