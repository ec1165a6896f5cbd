package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinoosan/tunebridge/internal/downloadcfg"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9090" {
		t.Fatalf("http.addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Status.TerminalTTL != 10*time.Minute || cfg.Status.SweepInterval != time.Minute || cfg.Fetch.Timeout != 30*time.Second {
		t.Fatalf("durations = %+v %+v", cfg.Status, cfg.Fetch)
	}
	if cfg.Tool.Config != filepath.Join(home, ".gamdl", "config.ini") {
		t.Fatalf("tool.config = %q", cfg.Tool.Config)
	}
	if cfg.Log.File != filepath.Join(home, ".tunebridge", "tunebridge.log") {
		t.Fatalf("log.file = %q", cfg.Log.File)
	}
	if cfg.Codec() != downloadcfg.CodecAACLegacy {
		t.Fatalf("codec = %q", cfg.Codec())
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
tool:
  path: /opt/gamdl/bin/gamdl
  extra_path: [/opt/bin]
download:
  default_codec: alac
status:
  terminal_ttl: 2m
http:
  token: sekrit
bridge:
  url: ws://127.0.0.1:9090/v1/ws
`)
	t.Setenv("TUNEBRIDGE_HTTP_ADDR", "127.0.0.1:7000")
	t.Setenv("TUNEBRIDGE_LOG_LEVEL", "debug")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tool.Path != "/opt/gamdl/bin/gamdl" || len(cfg.Tool.ExtraPath) != 1 || cfg.Tool.ExtraPath[0] != "/opt/bin" {
		t.Fatalf("tool = %+v", cfg.Tool)
	}
	if cfg.Codec() != downloadcfg.CodecALAC {
		t.Fatalf("codec = %q", cfg.Codec())
	}
	if cfg.Status.TerminalTTL != 2*time.Minute {
		t.Fatalf("terminal_ttl = %v", cfg.Status.TerminalTTL)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7000" || cfg.HTTP.Token != "sekrit" {
		t.Fatalf("http = %+v", cfg.HTTP)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log.level = %q", cfg.Log.Level)
	}
	if cfg.Bridge.URL != "ws://127.0.0.1:9090/v1/ws" {
		t.Fatalf("bridge.url = %q", cfg.Bridge.URL)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	p := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: loud\n")
	_, err := Load(p)
	if err == nil || !strings.Contains(err.Error(), "log.level") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Download: DownloadConfig{DefaultCodec: "aac-legacy"},
			Status:   StatusConfig{TerminalTTL: time.Minute, SweepInterval: time.Second},
			Fetch:    FetchConfig{Timeout: time.Second},
			Log:      LogConfig{Level: "info", MaxSizeMB: 1},
			Progress: ProgressConfig{Dir: "/tmp/p"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad codec", func(c *Config) { c.Download.DefaultCodec = "mp3" }, "default_codec"},
		{"zero ttl", func(c *Config) { c.Status.TerminalTTL = 0 }, "terminal_ttl"},
		{"zero sweep", func(c *Config) { c.Status.SweepInterval = 0 }, "sweep_interval"},
		{"zero fetch timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "fetch.timeout"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"no log size", func(c *Config) { c.Log.MaxSizeMB = 0 }, "max_size_mb"},
		{"no progress dir", func(c *Config) { c.Progress.Dir = "" }, "progress.dir"},
		{"bridge ws", func(c *Config) { c.Bridge.URL = "ws://localhost:9090/v1/ws" }, ""},
		{"pinned format", func(c *Config) { c.Tool.OutputFormat = "gamdl/2" }, ""},
		{"unknown format", func(c *Config) { c.Tool.OutputFormat = "gamdl/9" }, "output_format"},
		{"bridge bad scheme", func(c *Config) { c.Bridge.URL = "ftp://localhost" }, "bridge.url"},
		{"bridge no host", func(c *Config) { c.Bridge.URL = "ws:///v1/ws" }, "bridge.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v want %q", err, tt.wantErr)
			}
		})
	}
}

func TestReadToolConfig(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	p := writeFile(t, dir, "config.ini", "[gamdl]\noutput_path = /music/Apple Music\ncookies_path = cookies/apple.txt\n")

	paths, err := ReadToolConfig(p, work)
	if err != nil {
		t.Fatalf("ReadToolConfig: %v", err)
	}
	if paths.OutputDir != "/music/Apple Music" {
		t.Fatalf("output = %q", paths.OutputDir)
	}
	if paths.CookiesPath != filepath.Join(work, "cookies", "apple.txt") {
		t.Fatalf("cookies = %q", paths.CookiesPath)
	}
}

func TestReadToolConfigMissingUsesToolDefaults(t *testing.T) {
	work := t.TempDir()
	paths, err := ReadToolConfig(filepath.Join(work, "absent.ini"), work)
	if err != nil {
		t.Fatalf("ReadToolConfig: %v", err)
	}
	if paths.OutputDir != filepath.Join(work, "Apple Music") || paths.CookiesPath != filepath.Join(work, "cookies.txt") {
		t.Fatalf("paths = %+v", paths)
	}
}

func TestToolPathsOutputOverride(t *testing.T) {
	work := t.TempDir()
	c := Config{
		Tool:   ToolConfig{Config: filepath.Join(work, "absent.ini"), WorkDir: work},
		Output: OutputConfig{Dir: "/srv/music"},
	}
	paths, err := c.ToolPaths()
	if err != nil {
		t.Fatalf("ToolPaths: %v", err)
	}
	if paths.OutputDir != "/srv/music" {
		t.Fatalf("output = %q", paths.OutputDir)
	}
}
