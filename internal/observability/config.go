package observability

// Config holds the opt-in diagnostics switches.
type Config struct {
	// EnablePprofTrace mounts net/http/pprof under /debug/pprof/.
	EnablePprofTrace bool
	// DebugTelemetry prints a line per tick with broadcast sizes and timing.
	DebugTelemetry bool
}

// Enabled reports whether any diagnostic is switched on.
func (c Config) Enabled() bool {
	return c.EnablePprofTrace || c.DebugTelemetry
}
