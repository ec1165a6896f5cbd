package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ToolPaths are the settings shared with gamdl's own config.ini.
type ToolPaths struct {
	OutputDir   string
	CookiesPath string
}

// ReadToolConfig reads output_path and cookies_path from the [gamdl]
// section of the tool's ini file. A missing file yields the tool's
// defaults, both relative to workDir. The file is never written.
func ReadToolConfig(path, workDir string) (ToolPaths, error) {
	paths := ToolPaths{
		OutputDir:   filepath.Join(workDir, "Apple Music"),
		CookiesPath: filepath.Join(workDir, "cookies.txt"),
	}
	if path == "" {
		return paths, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return paths, nil
		}
		return paths, fmt.Errorf("read tool config %s: %w", path, err)
	}
	if s := v.GetString("gamdl.output_path"); s != "" {
		paths.OutputDir = resolve(expandHome(s), workDir)
	}
	if s := v.GetString("gamdl.cookies_path"); s != "" {
		paths.CookiesPath = resolve(expandHome(s), workDir)
	}
	return paths, nil
}

func resolve(p, workDir string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workDir, p)
}

// ToolPaths reads the tool's config and applies the output.dir override.
func (c *Config) ToolPaths() (ToolPaths, error) {
	paths, err := ReadToolConfig(c.Tool.Config, c.Tool.WorkDir)
	if c.Output.Dir != "" {
		paths.OutputDir = c.Output.Dir
	}
	return paths, err
}
