package appconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/consolefold/internal/logx"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("console.frame_interval_ms", cfg.Console.FrameIntervalMS)
	v.SetDefault("console.inbox_depth", cfg.Console.InboxDepth)
	v.SetDefault("console.backlog_lines", cfg.Console.BacklogLines)
	v.SetDefault("console.default_visible", cfg.Console.DefaultVisible)
	v.SetDefault("console.command_lexer", cfg.Console.CommandLexer)
	v.SetDefault("console.disable_ansi", cfg.Console.DisableANSI)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_url", cfg.HTTP.BaseURL)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.replay_events", cfg.HTTP.ReplayEvents)
	v.SetDefault("http.complete_header", cfg.HTTP.CompleteHeader)
	v.SetDefault("http.start_param", cfg.HTTP.StartParam)
	v.SetDefault("source.poll_interval_ms", cfg.Source.PollIntervalMS)
	v.SetDefault("source.timeout_seconds", cfg.Source.TimeoutSeconds)
	v.SetDefault("source.max_retries", cfg.Source.MaxRetries)
	v.SetDefault("source.retry_base_ms", cfg.Source.RetryBaseMS)
	v.SetDefault("source.start_param", cfg.Source.StartParam)
	v.SetDefault("source.complete_header", cfg.Source.CompleteHeader)
	v.SetDefault("source.headers", cfg.Source.Headers)
	v.SetDefault("source.follow", cfg.Source.Follow)
	v.SetDefault("source.batch_lines", cfg.Source.BatchLines)
	v.SetDefault("logging.level", cfg.Logging.Level)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	} else {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and formats.
func Validate(cfg Config) error {
	if cfg.Console.FrameIntervalMS <= 0 {
		return fmt.Errorf("console.frame_interval_ms must be > 0")
	}
	if cfg.Console.InboxDepth < 0 || cfg.Console.BacklogLines < 0 {
		return fmt.Errorf("console.inbox_depth and console.backlog_lines must be >= 0")
	}
	if lexer := strings.TrimSpace(cfg.Console.CommandLexer); lexer != "" && lexers.Get(lexer) == nil {
		return fmt.Errorf("console.command_lexer %q is not a known lexer", lexer)
	}
	if err := validateHTTPConfig(cfg.HTTP); err != nil {
		return err
	}
	if cfg.Source.PollIntervalMS <= 0 || cfg.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.poll_interval_ms and source.timeout_seconds must be > 0")
	}
	if cfg.Source.MaxRetries < 0 || cfg.Source.RetryBaseMS < 0 || cfg.Source.BatchLines < 0 {
		return fmt.Errorf("source.max_retries, source.retry_base_ms and source.batch_lines must be >= 0")
	}
	if strings.TrimSpace(cfg.Source.StartParam) == "" {
		return fmt.Errorf("source.start_param is required")
	}
	if strings.TrimSpace(cfg.Source.CompleteHeader) == "" {
		return fmt.Errorf("source.complete_header is required")
	}
	if _, err := logx.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func validateHTTPConfig(cfg HTTPConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("http.base_url must include scheme and host (e.g. https://ci.example.com)")
		}
	}
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	if cfg.ReplayEvents < 0 {
		return fmt.Errorf("http.replay_events must be >= 0")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.HTTP.Addr = expandEnv(cfg.HTTP.Addr)
	cfg.HTTP.BaseURL = expandEnv(cfg.HTTP.BaseURL)
	for key, value := range cfg.Source.Headers {
		cfg.Source.Headers[key] = expandEnv(value)
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
