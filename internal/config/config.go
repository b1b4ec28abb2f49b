// Package config defines margin's configuration model, its defaults and the
// YAML/.env loading rules.
package config

import "time"

// DefaultConfigFile is the configuration file looked up when none is given.
const DefaultConfigFile = "margin.yaml"

// RetryBackoffMode selects how pauses grow between attempts.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// Config represents the application configuration.
type Config struct {
	// Path of the file the configuration was read from. Empty for defaults.
	Path string `yaml:"-"`

	Content     ContentConfig     `yaml:"content"`
	Output      OutputConfig      `yaml:"output"`
	Server      ServerConfig      `yaml:"server"`
	Build       BuildConfig       `yaml:"build"`
	Watch       WatchConfig       `yaml:"watch"`
	CriticalCSS CriticalCSSConfig `yaml:"critical_css"`
	History     HistoryConfig     `yaml:"history"`
	Events      EventsConfig      `yaml:"events"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
}

// ContentConfig points at the source tree fed to the content pipeline.
type ContentConfig struct {
	Directory string `yaml:"directory"`
	Static    string `yaml:"static,omitempty"` // copied verbatim into the output
	Title     string `yaml:"title"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"`
}

// ServerConfig holds the development server listeners.
type ServerConfig struct {
	BaseDir     string `yaml:"base_dir"`
	Port        int    `yaml:"port"`
	WSPort      int    `yaml:"ws_port"`
	MetricsPort int    `yaml:"metrics_port,omitempty"` // 0 disables /metrics
}

// BuildConfig holds the flags the build command is driven by.
type BuildConfig struct {
	Serve      bool `yaml:"serve"`
	BundleInfo bool `yaml:"bundle_info"`
}

// WatchConfig classifies source changes.
type WatchConfig struct {
	Extensions           []string      `yaml:"extensions"`
	StylesheetExtensions []string      `yaml:"stylesheet_extensions"`
	IgnoreDirs           []string      `yaml:"ignore_dirs"`
	IgnoreSuffixes       []string      `yaml:"ignore_suffixes"`
	BatchWindow          time.Duration `yaml:"batch_window"`
}

// CriticalCSSConfig configures the critical CSS generator and its retry loop.
type CriticalCSSConfig struct {
	Enabled bool `yaml:"enabled"`
	// Command and Args run the external generator. "{output}" in an argument is
	// replaced with the output directory. The CSS is read from stdout.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// Supplementary is a hand written stylesheet appended to the generated CSS
	// after "$name" placeholders are substituted from Variables/VariablesFile.
	Supplementary string            `yaml:"supplementary,omitempty"`
	Variables     map[string]string `yaml:"variables,omitempty"`
	VariablesFile string            `yaml:"variables_file,omitempty"`

	Attempts   int              `yaml:"attempts"`
	RetryDelay time.Duration    `yaml:"retry_delay"`
	Backoff    RetryBackoffMode `yaml:"backoff"`
}

// HistoryConfig enables the SQLite build history.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"` // empty disables history; ":memory:" is allowed
}

// EventsConfig enables publishing build events to NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// ScheduleConfig enables periodic rebuilds while serving.
type ScheduleConfig struct {
	RebuildInterval time.Duration `yaml:"rebuild_interval,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Content.Directory == "" {
		cfg.Content.Directory = "content"
	}
	if cfg.Content.Title == "" {
		cfg.Content.Title = "The Margin"
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "public"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.WSPort == 0 {
		cfg.Server.WSPort = 3001
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = []string{".md", ".html", ".css", ".scss", ".js", ".ts", ".tsx", ".yaml", ".yml", ".json"}
	}
	if len(cfg.Watch.StylesheetExtensions) == 0 {
		cfg.Watch.StylesheetExtensions = []string{".scss", ".css"}
	}
	if cfg.Watch.IgnoreDirs == nil {
		cfg.Watch.IgnoreDirs = []string{"test", "tests", "node_modules", ".git"}
	}
	if cfg.Watch.IgnoreSuffixes == nil {
		cfg.Watch.IgnoreSuffixes = []string{".test.ts", ".test.tsx", ".spec.ts", ".spec.tsx"}
	}
	if cfg.Watch.BatchWindow == 0 {
		cfg.Watch.BatchWindow = 300 * time.Millisecond
	}
	if cfg.CriticalCSS.Command == "" {
		cfg.CriticalCSS.Command = "npx"
		cfg.CriticalCSS.Args = []string{"critical", "index.html", "--base", "{output}", "--width", "1700", "--height", "900"}
	}
	if cfg.CriticalCSS.Attempts == 0 {
		cfg.CriticalCSS.Attempts = 5
	}
	if cfg.CriticalCSS.RetryDelay == 0 {
		cfg.CriticalCSS.RetryDelay = 2 * time.Second
	}
	if cfg.CriticalCSS.Backoff == "" {
		cfg.CriticalCSS.Backoff = RetryBackoffFixed
	}
	if cfg.Events.NATSURL != "" && cfg.Events.Subject == "" {
		cfg.Events.Subject = "margin.builds"
	}
}
