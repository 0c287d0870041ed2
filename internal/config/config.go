// Package config manages glidermon's two distinct configuration surfaces
// using koanf/v2: the small per-process ProcessConfig (log level/format,
// metrics address — set by flags or environment, loaded once at startup)
// and the layered, hot-reloaded subscription table described in §4.4 (see
// subscriptions.go). Keeping them in one package mirrors the teacher's
// config package, which likewise held both static daemon settings and
// (via SessionConfig) a dynamically reloadable list.
//
// The subscription layers are deep-merged on their raw YAML trees
// (merge.go) rather than through koanf's own Load, because koanf overwrites
// lists where the layered merge concatenates them. Concatenation can leave
// the same endpoint listed twice; canonicalization does not remove such
// duplicates (subscribe.Resolve skips them when dispatching).
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// ProcessConfig holds the settings resolved once at daemon startup, before
// a mission directory or session log has even been identified.
type ProcessConfig struct {
	LogLevel    string `koanf:"log_level"`
	LogFormat   string `koanf:"log_format"`
	MetricsAddr string `koanf:"metrics_addr"`

	// Cross-sink settings (§4.6): every endpoint shares one outbound mail
	// relay and one satellite-gateway base URL, set once for the whole
	// basestation rather than per subscription-table entry.
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUsername string `koanf:"smtp_username"`
	SMTPPassword string `koanf:"smtp_password"`

	SatelliteBaseURL string `koanf:"satellite_base_url"`

	// VisualizationBaseURL, if set, is where the monitor POSTs the §6
	// visualization sidechannel record after each major callback.
	VisualizationBaseURL string `koanf:"visualization_base_url"`
}

// DefaultProcessConfig returns a ProcessConfig populated with sensible
// defaults for an unattended shore-server deployment.
func DefaultProcessConfig() *ProcessConfig {
	return &ProcessConfig{
		LogLevel:    "info",
		LogFormat:   "json",
		MetricsAddr: "",
		SMTPPort:    25,
	}
}

// envPrefix is the environment variable prefix for glidermon process
// configuration, e.g. GLIDERMON_LOG_LEVEL -> log_level.
const envPrefix = "GLIDERMON_"

// LoadProcessConfig overlays environment variable overrides on top of
// DefaultProcessConfig(); CLI flags (see cmd/glidermon) are applied by the
// caller afterward, since flags outrank environment per the usual
// precedence order.
func LoadProcessConfig() (*ProcessConfig, error) {
	k := koanf.New(".")
	cfg := DefaultProcessConfig()

	defaults := map[string]any{
		"log_level":              cfg.LogLevel,
		"log_format":             cfg.LogFormat,
		"metrics_addr":           cfg.MetricsAddr,
		"smtp_host":              cfg.SMTPHost,
		"smtp_port":              cfg.SMTPPort,
		"smtp_username":          cfg.SMTPUsername,
		"smtp_password":          cfg.SMTPPassword,
		"satellite_base_url":     cfg.SatelliteBaseURL,
		"visualization_base_url": cfg.VisualizationBaseURL,
	}
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	out := &ProcessConfig{}
	if err := k.Unmarshal("", out); err != nil {
		return nil, fmt.Errorf("unmarshal process config: %w", err)
	}
	return out, nil
}

// envKeyMapper transforms GLIDERMON_LOG_LEVEL -> log_level.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(s)
}

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
