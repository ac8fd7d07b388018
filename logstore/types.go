// Package logstore defines the records captured during a skill session and
// the append-only store that accumulates them.
//
// The JSON field names are the report contract consumed by the upload
// endpoint and by the downloaded file: do not rename them.
package logstore

// FormatVersion is the logger format version written into every report.
const FormatVersion = "1.3.0"

// Type is the console channel a record was captured from.
type Type string

const (
	TypeLog   Type = "log"
	TypeError Type = "error"
	TypeWarn  Type = "warn"
	TypeInfo  Type = "info"
	TypeDebug Type = "debug"
)

// Valid reports whether t is one of the five channel types.
func (t Type) Valid() bool {
	switch t {
	case TypeLog, TypeError, TypeWarn, TypeInfo, TypeDebug:
		return true
	}
	return false
}

// SkillInfo identifies the automation running in the session.
type SkillInfo struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Version    string `json:"version"`
}

// BrowserInfo describes the controlled browser at initialisation.
type BrowserInfo struct {
	UserAgent string `json:"userAgent"`
	Version   string `json:"version"`
	Height    int    `json:"height"`
	Width     int    `json:"width"`
}

// Metadata is fixed at store creation and never mutated afterwards.
type Metadata struct {
	Skill       SkillInfo
	Browser     BrowserInfo
	Initialized int64  // epoch milliseconds
	Version     string // logger format version
}

// Record is one captured console invocation.
type Record struct {
	Type      Type     `json:"type"`
	Message   []any    `json:"message"`
	Trace     []string `json:"trace"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds
	URL       string   `json:"url"`
	Snapshot  string   `json:"snapshot,omitempty"`
}

// Report is the exported view of a store.
type Report struct {
	SkillInfo   SkillInfo   `json:"skillInfo"`
	BrowserInfo BrowserInfo `json:"browserInfo"`
	Version     string      `json:"version"`
	Initialized int64       `json:"initialized"`
	Logs        []Record    `json:"logs"`
	Snapshot    string      `json:"snapshot,omitempty"`
}
