package gamdl

import (
	"os"
	"path/filepath"
	"strings"
)

// defaultPath holds the directories where ffmpeg and the decryption wrapper
// are usually installed. The browser launches us with a minimal PATH.
func defaultPath() []string {
	dirs := []string{"/opt/homebrew/bin", "/usr/local/bin", "/usr/bin", "/bin"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"), filepath.Join(home, "wrapper"))
	}
	return dirs
}

// env returns the parent environment with the extra and default PATH entries
// prepended.
func (a *Adapter) env() []string {
	dirs := make([]string, 0, len(a.opts.ExtraPath)+6)
	for _, d := range a.opts.ExtraPath {
		dirs = append(dirs, expandHome(d))
	}
	dirs = append(dirs, defaultPath()...)
	if cur := os.Getenv("PATH"); cur != "" {
		dirs = append(dirs, cur)
	}
	path := "PATH=" + strings.Join(dirs, string(os.PathListSeparator))

	base := os.Environ()
	out := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, "PATH=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, path)
}
