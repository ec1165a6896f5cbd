// Package config loads host settings from an optional YAML file and
// TUNEBRIDGE_* environment variables, and reads the paths the tool itself
// is configured with.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinoosan/tunebridge/internal/downloadcfg"
	"github.com/tinoosan/tunebridge/internal/parser"
)

const (
	EnvPrefix         = "TUNEBRIDGE"
	defaultToolConfig = "~/.gamdl/config.ini"
)

// Config represents the entire host configuration
type Config struct {
	Tool     ToolConfig     `mapstructure:"tool"`
	Output   OutputConfig   `mapstructure:"output"`
	Download DownloadConfig `mapstructure:"download"`
	Status   StatusConfig   `mapstructure:"status"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Log      LogConfig      `mapstructure:"log"`
	Progress ProgressConfig `mapstructure:"progress"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
}

// ToolConfig locates gamdl and its interpreter.
type ToolConfig struct {
	Path      string   `mapstructure:"path"`
	Python    string   `mapstructure:"python"`
	Config    string   `mapstructure:"config"`
	ExtraPath []string `mapstructure:"extra_path"`
	WorkDir   string   `mapstructure:"workdir"`
	// OutputFormat pins the output parser to one format version, e.g.
	// "gamdl/2". Empty tries every known format.
	OutputFormat string `mapstructure:"output_format"`
}

type OutputConfig struct {
	// Dir overrides the tool's output_path for "already downloaded" checks.
	Dir string `mapstructure:"dir"`
}

type DownloadConfig struct {
	DefaultCodec string `mapstructure:"default_codec"`
}

type StatusConfig struct {
	TerminalTTL   time.Duration `mapstructure:"terminal_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type FetchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type ProgressConfig struct {
	Dir string `mapstructure:"dir"`
}

type HTTPConfig struct {
	Addr  string `mapstructure:"addr"`
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// BridgeConfig points the native host at a running serve daemon. When URL
// is set, native messages are relayed over its WebSocket instead of being
// handled in process.
type BridgeConfig struct {
	URL string `mapstructure:"url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tool.path", "")
	v.SetDefault("tool.python", "")
	v.SetDefault("tool.config", defaultToolConfig)
	v.SetDefault("tool.extra_path", []string{})
	v.SetDefault("tool.workdir", "~")
	v.SetDefault("tool.output_format", "")
	v.SetDefault("output.dir", "")
	v.SetDefault("download.default_codec", string(downloadcfg.DefaultCodec))
	v.SetDefault("status.terminal_ttl", "10m")
	v.SetDefault("status.sweep_interval", "1m")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("log.file", "~/.tunebridge/tunebridge.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("progress.dir", filepath.Join(os.TempDir(), "gamdl_progress"))
	v.SetDefault("http.addr", "127.0.0.1:9090")
	v.SetDefault("http.token", "")
	v.SetDefault("database.url", "")
	v.SetDefault("bridge.url", "")
}

// DefaultToolConfig is the ini file gamdl reads when given no
// --config-path.
func DefaultToolConfig() string {
	return expandHome(defaultToolConfig)
}

// DefaultPath is where Load looks when no file is given.
func DefaultPath() string {
	return expandHome("~/.tunebridge/config.yaml")
}

// Load reads configPath, or DefaultPath when empty. A missing default file
// is not an error; a missing explicit file is.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultPath()
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.expand()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expand() {
	c.Tool.Path = expandHome(c.Tool.Path)
	c.Tool.Python = expandHome(c.Tool.Python)
	c.Tool.Config = expandHome(c.Tool.Config)
	c.Tool.WorkDir = expandHome(c.Tool.WorkDir)
	for i, p := range c.Tool.ExtraPath {
		c.Tool.ExtraPath[i] = expandHome(p)
	}
	c.Output.Dir = expandHome(c.Output.Dir)
	c.Log.File = expandHome(c.Log.File)
	c.Progress.Dir = expandHome(c.Progress.Dir)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be positive")
	}
	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_backups must not be negative")
	}
	if c.Status.TerminalTTL <= 0 {
		return fmt.Errorf("status.terminal_ttl must be positive")
	}
	if c.Status.SweepInterval <= 0 {
		return fmt.Errorf("status.sweep_interval must be positive")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Progress.Dir == "" {
		return fmt.Errorf("progress.dir is required")
	}
	if !downloadcfg.Known(downloadcfg.Codec(strings.ToLower(c.Download.DefaultCodec))) {
		return fmt.Errorf("invalid download.default_codec: %s", c.Download.DefaultCodec)
	}
	if c.Tool.OutputFormat != "" {
		if _, ok := parser.Lookup(c.Tool.OutputFormat); !ok {
			return fmt.Errorf("unknown tool.output_format: %s", c.Tool.OutputFormat)
		}
	}
	if c.Bridge.URL != "" {
		u, err := url.Parse(c.Bridge.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid bridge.url: %q", c.Bridge.URL)
		}
	}
	return nil
}

// Codec returns the configured default codec.
func (c *Config) Codec() downloadcfg.Codec {
	return downloadcfg.ParseCodec(c.Download.DefaultCodec, downloadcfg.DefaultCodec)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log.level: %s", s)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
