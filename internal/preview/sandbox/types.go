package sandbox

import (
	"time"
)

// Config defines sandbox configuration
type Config struct {
	ExecTimeout   time.Duration // Per-script execution timeout
	EnableConsole bool          // Allow console.log/warn/error
	EnableDOM     bool          // Expose the document proxy to scripts
}

// LogEntry represents console output captured inside the sandbox. Script
// faults are reported here and never propagate to the host.
type LogEntry struct {
	Level   string    // log, warn, error, info
	Message string    // Log message
	Time    time.Time // Timestamp
}

// DefaultConfig returns a production-ready sandbox configuration.
func DefaultConfig() Config {
	return Config{
		ExecTimeout:   5 * time.Second,
		EnableConsole: true,
		EnableDOM:     true,
	}
}
