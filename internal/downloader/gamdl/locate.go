package gamdl

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tinoosan/tunebridge/internal/data"
)

const toolName = "gamdl"

// candidates lists install locations in lookup order: the configured path,
// pipx, /usr/local and Homebrew.
func (a *Adapter) candidates() []string {
	var out []string
	if a.opts.Tool != "" {
		out = append(out, expandHome(a.opts.Tool))
	}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, ".local", "bin", toolName))
	}
	return append(out, "/usr/local/bin/"+toolName, "/opt/homebrew/bin/"+toolName)
}

// locate finds the tool executable, falling back to PATH.
func (a *Adapter) locate() (string, error) {
	for _, p := range a.candidates() {
		if isExecutable(p) {
			return p, nil
		}
	}
	if p, err := exec.LookPath(toolName); err == nil {
		return p, nil
	}
	if a.opts.Tool != "" {
		return "", fmt.Errorf("%w (configured path %s is not executable)", data.ErrToolNotFound, a.opts.Tool)
	}
	return "", data.ErrToolNotFound
}

func isExecutable(p string) bool {
	fi, err := os.Stat(p)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode().Perm()&0o111 != 0
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
