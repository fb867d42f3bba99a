package logging

import (
	"strings"
	"time"
)

const (
	DefaultBufferSize       = 512
	DefaultDropWarnInterval = 5 * time.Second
	DefaultJSONFlush        = 2 * time.Second
)

// Config controls the event router and the sinks FromConfig builds.
type Config struct {
	// EnabledSinks names the sinks to attach: console, json or memory.
	EnabledSinks    []string
	BufferSize      int
	MinimumSeverity Severity
	// Fields are stamped into every event's Extra map.
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       DefaultBufferSize,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: DefaultDropWarnInterval,
		JSON:             JSONConfig{FlushInterval: DefaultJSONFlush},
	}
}

// Normalized fills unset sizes and intervals and canonicalizes sink names:
// lowercase, trimmed, first occurrence kept.
func (c Config) Normalized() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.DropWarnInterval <= 0 {
		c.DropWarnInterval = DefaultDropWarnInterval
	}
	if c.JSON.FlushInterval <= 0 {
		c.JSON.FlushInterval = DefaultJSONFlush
	}

	seen := make(map[string]bool, len(c.EnabledSinks))
	sinks := make([]string, 0, len(c.EnabledSinks))
	for _, raw := range c.EnabledSinks {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		sinks = append(sinks, name)
	}
	c.EnabledSinks = sinks

	if len(c.Fields) > 0 {
		fields := make(map[string]any, len(c.Fields))
		for k, v := range c.Fields {
			fields[k] = v
		}
		c.Fields = fields
	}
	return c
}
