// Package config loads the skilllog YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level skilllog configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Skill     SkillConfig     `yaml:"skill"`
	Capture   CaptureConfig   `yaml:"capture"`
	Export    ExportConfig    `yaml:"export"`
	Collector CollectorConfig `yaml:"collector"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Stealth          string        `yaml:"stealth"` // plain | headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
	XvfbScreen       string        `yaml:"xvfb_screen"` // WxHxDepth
	ResourceBlocking []string      `yaml:"resource_blocking"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
}

// SkillConfig identifies the skill written into every report.
type SkillConfig struct {
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
}

// CaptureConfig controls snapshots and console recording.
type CaptureConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MarkedAttributes  []string      `yaml:"marked_attributes"`
	Filler            string        `yaml:"filler"`
	PerRecordSnapshot bool          `yaml:"per_record_snapshot"`
	PageConsole       *bool         `yaml:"page_console"` // nil = true
}

// ExportConfig controls where reports go.
type ExportConfig struct {
	Dir      string `yaml:"dir"`
	Endpoint string `yaml:"endpoint"`
	Upload   bool   `yaml:"upload"`
}

// CollectorConfig configures `skilllog collect`.
type CollectorConfig struct {
	Addr    string `yaml:"addr"`
	Dir     string `yaml:"dir"`
	MaxBody int64  `yaml:"max_body"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used without a file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// PageConsoleEnabled reports whether the page's own console is recorded.
func (c CaptureConfig) PageConsoleEnabled() bool {
	return c.PageConsole == nil || *c.PageConsole
}

func (c *Config) applyDefaults() {
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.XvfbScreen == "" {
		c.Browser.XvfbScreen = "1920x1080x24"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Skill.Identifier == "" {
		c.Skill.Identifier = "skill"
	}
	if c.Skill.Name == "" {
		c.Skill.Name = c.Skill.Identifier
	}
	if c.Skill.Version == "" {
		c.Skill.Version = "0.0.0"
	}
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = 10 * time.Second
	}
	if len(c.Capture.MarkedAttributes) == 0 {
		c.Capture.MarkedAttributes = []string{"value"}
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "."
	}
	if c.Collector.Addr == "" {
		c.Collector.Addr = "127.0.0.1:8787"
	}
	if c.Collector.Dir == "" {
		c.Collector.Dir = "reports"
	}
	if c.Collector.MaxBody <= 0 {
		c.Collector.MaxBody = 10 << 20
	}
}
