package rine

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvBackend         = "RINE_BACKEND"
	EnvAdapterName     = "RINE_ADAPTER_NAME"
	EnvPowerPreference = "RINE_POWER_PREFERENCE"
	EnvVSync           = "RINE_VSYNC"
	EnvLog             = "RINE_LOG"
)

// Config holds process-level settings that are not part of the
// application: adapter selection, vsync override and log level.
type Config struct {
	Backend         string
	AdapterName     string
	PowerPreference PowerPreference

	// VSync overrides the window configuration when non-nil.
	VSync *bool

	// LogLevel is applied by NewLogger when LogEnabled is set.
	LogLevel   slog.Level
	LogEnabled bool
}

// AdapterOptions converts the adapter selection fields.
func (c Config) AdapterOptions() AdapterOptions {
	return AdapterOptions{
		Backend:         c.Backend,
		Name:            c.AdapterName,
		PowerPreference: c.PowerPreference,
	}
}

// NewLogger returns a text logger writing to w at the configured level, or
// nil when logging is not enabled. Pass the result to SetLogger.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	if !c.LogEnabled {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

// ConfigFromEnv reads Config from the process environment.
func ConfigFromEnv() (Config, error) {
	return ConfigFromLookup(os.LookupEnv)
}

// ConfigFromLookup reads Config through lookup, which has the signature of
// os.LookupEnv. Unset or empty variables keep their defaults.
func ConfigFromLookup(lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg.Backend = strings.ToLower(get(EnvBackend))
	cfg.AdapterName = get(EnvAdapterName)

	switch v := strings.ToLower(get(EnvPowerPreference)); v {
	case "", "none":
	case "low", "low-power", "lowpower":
		cfg.PowerPreference = PowerPreferenceLowPower
	case "high", "high-performance", "highperformance":
		cfg.PowerPreference = PowerPreferenceHighPerformance
	default:
		return Config{}, fmt.Errorf("rine: %s: unknown power preference %q", EnvPowerPreference, v)
	}

	switch v := strings.ToLower(get(EnvVSync)); v {
	case "":
	case "1", "on", "true", "yes":
		on := true
		cfg.VSync = &on
	case "0", "off", "false", "no":
		off := false
		cfg.VSync = &off
	default:
		return Config{}, fmt.Errorf("rine: %s: invalid value %q", EnvVSync, v)
	}

	if v := get(EnvLog); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("rine: %s: %w", EnvLog, err)
		}
		cfg.LogLevel = level
		cfg.LogEnabled = true
	}
	return cfg, nil
}
