// Package logging builds the process logger. Output goes to a rotated JSON
// file, never stdout: in native messaging mode stdout carries the protocol.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	File       string
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
	// Console, when set, also receives every record.
	Console io.Writer
}

// New returns a logger writing to opts.File and a closer for the file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.File == "" {
		return nil, nil, fmt.Errorf("log file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB, // MB
		MaxBackups: opts.MaxBackups,
		MaxAge:     30, // days
		Compress:   true,
	}

	var w io.Writer = file
	if opts.Console != nil {
		w = io.MultiWriter(file, opts.Console)
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	return slog.New(h), file, nil
}
