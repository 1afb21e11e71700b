package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/voxterm/internal/logging"
	"github.com/dshills/voxterm/internal/prompt"
)

// EnvLogLevel overrides the configured log level when set.
const EnvLogLevel = "VOXTERM_LOG_LEVEL"

// Backend configures the wrapped CLI.
type Backend struct {
	// Command is the executable to wrap.
	Command string `toml:"command"`

	// Args are passed to the command verbatim.
	Args []string `toml:"args"`

	// Dir is the working directory. Empty means the current one.
	Dir string `toml:"dir"`

	// Term overrides TERM for the child. Empty means inherit, with an
	// xterm-256color fallback when the parent has no TERM.
	Term string `toml:"term"`

	// TerminateTimeoutMS is the SIGTERM grace period before SIGKILL,
	// in milliseconds.
	TerminateTimeoutMS int `toml:"terminate_timeout_ms"`
}

// TerminateTimeout returns the grace period as a duration.
func (b Backend) TerminateTimeout() time.Duration {
	return time.Duration(b.TerminateTimeoutMS) * time.Millisecond
}

// Marker mirrors prompt.Marker for TOML decoding.
type Marker struct {
	Name      string `toml:"name"`
	Kind      string `toml:"kind"`
	Open      string `toml:"open"`
	Close     string `toml:"close"`
	CloseKind string `toml:"close_kind"`
	Suppress  bool   `toml:"suppress"`
}

// Config is the full configuration tree.
type Config struct {
	Backend Backend `toml:"backend"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// LogDir is where the session log file is written. Empty disables
	// file logging.
	LogDir string `toml:"log_dir"`

	// Markers is the prompt-marker table. Empty means the built-in
	// defaults.
	Markers []Marker `toml:"markers"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Backend: Backend{
			Command:            "claude",
			TerminateTimeoutMS: 2000,
		},
		LogLevel: "info",
	}
}

// ParseError reports a malformed configuration file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads the file at path over the defaults. A missing file
// returns the defaults unchanged. The environment log-level override
// is applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, &ParseError{Path: path, Err: err}
		}
	}

	if cfg.Backend.TerminateTimeoutMS <= 0 {
		cfg.Backend.TerminateTimeoutMS = 2000
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

// Level parses the configured log level, falling back to info.
func (c Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// PromptMarkers converts the configured table for the detector. An
// empty table yields the detector's defaults. Entries with an unknown
// kind or no open pattern are skipped rather than failing the load; a
// half-usable marker table beats no session.
func (c Config) PromptMarkers() []prompt.Marker {
	if len(c.Markers) == 0 {
		return nil
	}
	out := make([]prompt.Marker, 0, len(c.Markers))
	for _, m := range c.Markers {
		kind := prompt.MarkerKind(m.Kind)
		if kind != prompt.MarkerOSC && kind != prompt.MarkerText {
			continue
		}
		closeKind := prompt.MarkerKind(m.CloseKind)
		if closeKind != "" && closeKind != prompt.MarkerOSC && closeKind != prompt.MarkerText {
			continue
		}
		if m.Open == "" {
			continue
		}
		out = append(out, prompt.Marker{
			Name:      m.Name,
			Kind:      kind,
			Open:      m.Open,
			Close:     m.Close,
			CloseKind: closeKind,
			Suppress:  m.Suppress,
		})
	}
	return out
}
