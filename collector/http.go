package collector

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/segmentio/encoding/json"

	"github.com/hazyhaar/skilllog/shield"
)

// Handler returns the HTTP API of the collector, MCP endpoint included.
func (c *Collector) Handler() http.Handler {
	srv := c.MCPServer()

	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(c.cfg.Logger, c.cfg.MaxBody) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/logs", c.handleUpload)
	r.Get("/api/reports", c.handleList)
	r.Get("/api/reports/{id}", c.handleGet)
	r.Get("/api/reports/{id}/snapshot", c.handleSnapshot)
	r.Get("/api/reports/{id}/outline", c.handleOutline)

	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))
	return r
}

func (c *Collector) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := shield.GetLogger(r.Context())

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "report too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	id, err := c.Save(r.Context(), data)
	if err != nil {
		log.Warn("collector: rejected upload", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (c *Collector) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := c.List(r.Context())
	if err != nil {
		shield.GetLogger(r.Context()).Error("collector: list", "error", err)
		writeError(w, http.StatusInternalServerError, "list reports")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (c *Collector) handleGet(w http.ResponseWriter, r *http.Request) {
	data, err := c.Raw(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (c *Collector) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	html, err := c.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, html)
}

func (c *Collector) handleOutline(w http.ResponseWriter, r *http.Request) {
	out, err := c.Outline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	io.WriteString(w, out)
}

func (c *Collector) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	shield.GetLogger(r.Context()).Error("collector: request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
