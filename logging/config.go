package logging

import "time"

// Sink names the router recognizes out of the box. Session config files refer
// to sinks by these strings.
const (
	SinkConsole = "console"
	SinkJSON    = "json"
	SinkMemory  = "memory"
)

// Config controls which sinks receive placement events and how the router
// buffers them between snap ticks.
type Config struct {
	// EnabledSinks lists sink names the caller should construct and hand
	// to the router. Names without a matching sink are skipped.
	EnabledSinks []string
	// BufferSize is the router queue depth. Events past it are dropped.
	BufferSize      int
	MinimumSeverity Severity
	// Fields is attached to every event, e.g. the session or house id.
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

// JSONConfig tunes the file-backed sink used for placement audit trails.
type JSONConfig struct {
	FilePath      string
	MaxBatch      int
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

// DefaultConfig logs to the console only, which suits a single-house server
// run from the command line.
func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{SinkConsole},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			MaxBatch:      32,
			FlushInterval: 2 * time.Second,
		},
	}
}

// HasSink reports whether name appears in EnabledSinks.
func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// CloneFields copies the ambient field set so callers can extend it per
// event without mutating the config.
func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
