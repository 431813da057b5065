package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/consolefold/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Console       ConsoleConfig `mapstructure:"console" yaml:"console"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	Source        SourceConfig  `mapstructure:"source" yaml:"source"`
	Logging       LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ConsoleConfig controls pane hosting and rendering.
type ConsoleConfig struct {
	FrameIntervalMS int    `mapstructure:"frame_interval_ms" yaml:"frame_interval_ms"`
	InboxDepth      int    `mapstructure:"inbox_depth" yaml:"inbox_depth"`
	BacklogLines    int    `mapstructure:"backlog_lines" yaml:"backlog_lines"`
	DefaultVisible  bool   `mapstructure:"default_visible" yaml:"default_visible"`
	CommandLexer    string `mapstructure:"command_lexer" yaml:"command_lexer"`
	DisableANSI     bool   `mapstructure:"disable_ansi" yaml:"disable_ansi"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr           string `mapstructure:"addr" yaml:"addr"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	BasePath       string `mapstructure:"base_path" yaml:"base_path"`
	ReplayEvents   int    `mapstructure:"replay_events" yaml:"replay_events"`
	CompleteHeader string `mapstructure:"complete_header" yaml:"complete_header"`
	StartParam     string `mapstructure:"start_param" yaml:"start_param"`
}

// SourceConfig configures console retrieval for watch.
type SourceConfig struct {
	PollIntervalMS int               `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int               `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBaseMS    int               `mapstructure:"retry_base_ms" yaml:"retry_base_ms"`
	StartParam     string            `mapstructure:"start_param" yaml:"start_param"`
	CompleteHeader string            `mapstructure:"complete_header" yaml:"complete_header"`
	Headers        map[string]string `mapstructure:"headers" yaml:"headers"`
	Follow         bool              `mapstructure:"follow" yaml:"follow"`
	BatchLines     int               `mapstructure:"batch_lines" yaml:"batch_lines"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Console: ConsoleConfig{
			FrameIntervalMS: int(schema.DefaultFrameInterval / time.Millisecond),
			InboxDepth:      schema.DefaultInboxDepth,
			BacklogLines:    schema.DefaultBacklogLines,
			DefaultVisible:  true,
			CommandLexer:    "bash",
			DisableANSI:     false,
		},
		HTTP: HTTPConfig{
			Addr:           ":27490",
			BaseURL:        "",
			BasePath:       "",
			ReplayEvents:   1000,
			CompleteHeader: "X-Console-Complete",
			StartParam:     "startLineNumber",
		},
		Source: SourceConfig{
			PollIntervalMS: 1000,
			TimeoutSeconds: 30,
			MaxRetries:     5,
			RetryBaseMS:    200,
			StartParam:     "startLineNumber",
			CompleteHeader: "X-Console-Complete",
			Headers:        map[string]string{},
			Follow:         true,
			BatchLines:     512,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ServiceConfig maps the console section onto the core service config.
func (c Config) ServiceConfig() schema.ServiceConfig {
	return schema.ServiceConfig{
		FrameInterval:  time.Duration(c.Console.FrameIntervalMS) * time.Millisecond,
		InboxDepth:     c.Console.InboxDepth,
		BacklogLines:   c.Console.BacklogLines,
		DefaultVisible: c.Console.DefaultVisible,
		CommandLexer:   c.Console.CommandLexer,
		DisableANSI:    c.Console.DisableANSI,
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".consolefold", "config.yaml"), nil
}
