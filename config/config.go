// Package config loads sandbox configuration from defaults, an optional YAML
// file and SANDBOX_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	sberrors "github.com/wippyai/wasm-surface/errors"
)

// EnvPrefix prefixes every environment override, e.g. SANDBOX_PUMP_INTERVAL.
const EnvPrefix = "SANDBOX"

// Guest stdio modes.
const (
	StdioLog     = "log"
	StdioInherit = "inherit"
	StdioDiscard = "discard"
)

// Config holds all sandbox configuration.
type Config struct {
	Runtime RuntimeConfig `yaml:"runtime"`
	Pump    PumpConfig    `yaml:"pump"`
	Input   InputConfig   `yaml:"input"`
	UI      UIConfig      `yaml:"ui"`
	Log     LogConfig     `yaml:"log"`
	Trace   TraceConfig   `yaml:"trace"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// RuntimeConfig configures each guest session.
type RuntimeConfig struct {
	// MemoryLimitPages caps guest memory in 64KiB pages. 0 means wazero's default.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" envconfig:"MEMORY_LIMIT_PAGES"`

	// EntryPoints are tried in order; the first exported one runs.
	EntryPoints []string `yaml:"entry_points" envconfig:"ENTRY_POINTS"`

	// Capabilities lists granted namespaces. Empty grants all.
	Capabilities []string `yaml:"capabilities" envconfig:"CAPABILITIES"`

	// Stdio routes guest stdout/stderr: log, inherit or discard.
	Stdio string `yaml:"stdio" envconfig:"STDIO"`

	// CloseOnStop cancels a running guest when its session is stopped.
	CloseOnStop bool `yaml:"close_on_stop" envconfig:"CLOSE_ON_STOP"`

	// MaxCapabilities caps the live handles one guest may hold. 0 means no limit.
	MaxCapabilities int `yaml:"max_capabilities" envconfig:"MAX_CAPABILITIES"`
}

// PumpConfig configures the animation pump.
type PumpConfig struct {
	Interval time.Duration `yaml:"interval" envconfig:"INTERVAL"`
}

// InputConfig configures event forwarding into the guest.
type InputConfig struct {
	QueueSize    int     `yaml:"queue_size" envconfig:"QUEUE_SIZE"`
	PointerRate  float64 `yaml:"pointer_rate" envconfig:"POINTER_RATE"`
	PointerBurst int     `yaml:"pointer_burst" envconfig:"POINTER_BURST"`
}

// UIConfig configures the UI task queue.
type UIConfig struct {
	QueueSize int `yaml:"queue_size" envconfig:"QUEUE_SIZE"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TraceConfig configures OpenTelemetry tracing.
type TraceConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	Exporter string `yaml:"exporter" envconfig:"EXPORTER"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Addr    string `yaml:"addr" envconfig:"ADDR"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Runtime: RuntimeConfig{
			MemoryLimitPages: 1024,
			EntryPoints:      []string{"_start", "run", "main"},
			Stdio:            StdioLog,
			CloseOnStop:      true,
			MaxCapabilities:  4096,
		},
		Pump: PumpConfig{
			Interval: 16 * time.Millisecond,
		},
		Input: InputConfig{
			QueueSize:    64,
			PointerRate:  120,
			PointerBurst: 8,
		},
		UI: UIConfig{
			QueueSize: 16,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Trace: TraceConfig{
			Exporter: "noop",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}

// Load returns Defaults overlaid with the YAML file at path (if non-empty)
// and then with environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, sberrors.Configuration("read config file", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, sberrors.Configuration("parse config file", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, sberrors.Configuration("read environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting as a configuration error.
func (c Config) Validate() error {
	switch {
	case len(c.Runtime.EntryPoints) == 0:
		return sberrors.Configuration("runtime.entry_points must not be empty", nil)
	case c.Runtime.MemoryLimitPages > 65536:
		return sberrors.Configuration(fmt.Sprintf("runtime.memory_limit_pages %d exceeds 65536", c.Runtime.MemoryLimitPages), nil)
	case c.Runtime.MaxCapabilities < 0:
		return sberrors.Configuration("runtime.max_capabilities must not be negative", nil)
	case c.Pump.Interval <= 0:
		return sberrors.Configuration("pump.interval must be positive", nil)
	case c.Input.QueueSize <= 0:
		return sberrors.Configuration("input.queue_size must be positive", nil)
	case c.Input.PointerRate < 0:
		return sberrors.Configuration("input.pointer_rate must not be negative", nil)
	case c.UI.QueueSize <= 0:
		return sberrors.Configuration("ui.queue_size must be positive", nil)
	}

	switch c.Runtime.Stdio {
	case StdioLog, StdioInherit, StdioDiscard:
	default:
		return sberrors.Configuration(fmt.Sprintf("runtime.stdio %q is not one of log, inherit, discard", c.Runtime.Stdio), nil)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return sberrors.Configuration(fmt.Sprintf("log.format %q is not json or console", c.Log.Format), nil)
	}
	return nil
}
