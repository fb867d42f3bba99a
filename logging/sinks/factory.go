package sinks

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"kosmos-worm/server/logging"
)

// FromConfig builds the sinks named in cfg.EnabledSinks. Unknown names are
// an error so a typo in LOG_SINKS is caught at startup.
func FromConfig(cfg logging.Config, console io.Writer) ([]logging.NamedSink, error) {
	cfg = cfg.Normalized()
	var named []logging.NamedSink
	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			named = append(named, logging.NamedSink{Name: name, Sink: NewConsoleSink(console, cfg.Console)})
		case "json":
			path := cfg.JSON.FilePath
			if path == "" {
				path = filepath.Join("logs", "events.jsonl")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create json log directory: %w", err)
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open json log %s: %w", path, err)
			}
			named = append(named, logging.NamedSink{Name: name, Sink: NewJSON(file, cfg.JSON.FlushInterval)})
		case "memory":
			named = append(named, logging.NamedSink{Name: name, Sink: NewMemorySink()})
		default:
			return nil, fmt.Errorf("unknown log sink %q", name)
		}
	}
	return named, nil
}
