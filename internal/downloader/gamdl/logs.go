package gamdl

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logPrefix    = "download_"
	logMaxAge    = time.Hour
	defaultLogMB = 5
)

// openLog returns a rotating sink for the raw output of job id, or nil when
// output logs are disabled. Logs older than an hour are removed first.
func (a *Adapter) openLog(id string) io.WriteCloser {
	if a.opts.ProgressDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.opts.ProgressDir, 0o755); err != nil {
		a.log.Warn("create progress dir", "dir", a.opts.ProgressDir, "err", err)
		return nil
	}
	if n := a.cleanupLogs(a.now().Add(-logMaxAge)); n > 0 {
		a.log.Debug("removed old output logs", "count", n)
	}
	size := a.opts.LogMaxSizeMB
	if size <= 0 {
		size = defaultLogMB
	}
	return &lumberjack.Logger{
		Filename:   a.logPath(id),
		MaxSize:    size,
		MaxBackups: 1,
	}
}

// cleanupLogs removes output logs last written before cutoff and returns how
// many were removed. Errors are ignored; a stale log is harmless.
func (a *Adapter) cleanupLogs(cutoff time.Time) int {
	matches, _ := filepath.Glob(filepath.Join(a.opts.ProgressDir, logPrefix+"*.log"))
	n := 0
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || !fi.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(m) == nil {
			n++
		}
	}
	return n
}
