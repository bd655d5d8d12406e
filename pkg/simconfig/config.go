// Package simconfig loads the host simulator's own settings from a
// YAML file. It never touches the actor core's compile-time limits
// (types.MaxAgents and friends stay Go consts); this package only
// configures things a simulator run can reasonably vary between
// invocations.
package simconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the simulator's tunable surface.
type Config struct {
	// TickIntervalMs is the wall-clock delay between simulator ticks.
	TickIntervalMs int `yaml:"tick_interval_ms"`

	// ReportIntervalTicks is how many ticks elapse between metrics
	// broadcasts and Prometheus gauge refreshes.
	ReportIntervalTicks int `yaml:"report_interval_ticks"`

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint. Empty disables the HTTP exporter.
	MetricsAddr string `yaml:"metrics_addr"`

	Watchdog WatchdogConfig `yaml:"watchdog"`
}

// WatchdogConfig carries the per-agent timeout the simulator registers
// each demo agent under.
type WatchdogConfig struct {
	SensorTimeoutTicks     uint32 `yaml:"sensor_timeout_ticks"`
	ControllerTimeoutTicks uint32 `yaml:"controller_timeout_ticks"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		TickIntervalMs:      10,
		ReportIntervalTicks: 500,
		MetricsAddr:         ":9100",
		Watchdog: WatchdogConfig{
			SensorTimeoutTicks:     3000,
			ControllerTimeoutTicks: 2000,
		},
	}
}

// Load reads a YAML file at path over top of Default, so a file only
// needs to set the fields it wants to override; fields the file omits
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	// #nosec G304 -- path is operator-supplied simulator configuration, not untrusted input.
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("simconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("simconfig: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
