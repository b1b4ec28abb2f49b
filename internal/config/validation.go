package config

import (
	"strings"

	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
)

// Normalize canonicalizes values that have more than one spelling.
func (c *Config) Normalize() {
	c.Server.BaseDir = NormalizeBaseDir(c.Server.BaseDir)
}

// NormalizeBaseDir gives a non-empty base dir a leading slash and drops a trailing one.
func NormalizeBaseDir(baseDir string) string {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" || baseDir == "/" {
		return ""
	}
	if !strings.HasPrefix(baseDir, "/") {
		baseDir = "/" + baseDir
	}
	return strings.TrimSuffix(baseDir, "/")
}

// Validate checks invariants the rest of the program relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output.Directory) == "" {
		return ferrors.ValidationError("output directory is required").WithContext("field", "output.directory").Build()
	}
	if strings.TrimSpace(c.Content.Directory) == "" {
		return ferrors.ValidationError("content directory is required").WithContext("field", "content.directory").Build()
	}
	for field, port := range map[string]int{"server.port": c.Server.Port, "server.ws_port": c.Server.WSPort} {
		if port < 1 || port > 65535 {
			return ferrors.ValidationError("port out of range").WithContext("field", field).WithContext("port", port).Build()
		}
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		return ferrors.ValidationError("port out of range").WithContext("field", "server.metrics_port").Build()
	}
	if c.Server.Port == c.Server.WSPort {
		return ferrors.ValidationError("server.port and server.ws_port must differ").WithContext("port", c.Server.Port).Build()
	}
	if c.Server.MetricsPort != 0 && (c.Server.MetricsPort == c.Server.Port || c.Server.MetricsPort == c.Server.WSPort) {
		return ferrors.ValidationError("server.metrics_port collides with another listener").Build()
	}
	if c.CriticalCSS.Attempts < 1 {
		return ferrors.ValidationError("critical_css.attempts must be at least 1").Build()
	}
	if c.CriticalCSS.RetryDelay < 0 {
		return ferrors.ValidationError("critical_css.retry_delay cannot be negative").Build()
	}
	switch c.CriticalCSS.Backoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return ferrors.ValidationError("unknown critical_css.backoff").WithContext("backoff", string(c.CriticalCSS.Backoff)).Build()
	}
	if c.Schedule.RebuildInterval < 0 {
		return ferrors.ValidationError("schedule.rebuild_interval cannot be negative").Build()
	}
	return nil
}
