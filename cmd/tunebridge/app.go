package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tinoosan/tunebridge/internal/catalog"
	"github.com/tinoosan/tunebridge/internal/config"
	"github.com/tinoosan/tunebridge/internal/downloader"
	"github.com/tinoosan/tunebridge/internal/downloader/gamdl"
	"github.com/tinoosan/tunebridge/internal/logging"
	"github.com/tinoosan/tunebridge/internal/metrics"
	"github.com/tinoosan/tunebridge/internal/parser"
	"github.com/tinoosan/tunebridge/internal/reconciler"
	"github.com/tinoosan/tunebridge/internal/repo"
	"github.com/tinoosan/tunebridge/internal/service"
)

const eventBuffer = 256

// app is the in-process download stack shared by both commands.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	events  chan downloader.Event
	rec     *reconciler.Reconciler
	adapter *gamdl.Adapter
	svc     service.Download
	lister  *catalog.Lister
	closers []io.Closer
}

func newLogger(cfg *config.Config, console io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(logging.Options{
		File:       cfg.Log.File,
		Level:      level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    console,
	})
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	metrics.Register()

	a := &app{cfg: cfg, log: log, events: make(chan downloader.Event, eventBuffer)}

	var history repo.HistoryRepo = repo.NewInMemoryHistory(repo.DefaultHistorySize)
	if cfg.Database.URL != "" {
		pg, err := repo.NewPostgresHistory(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open history database: %w", err)
		}
		a.closers = append(a.closers, pg)
		history = pg
	}

	paths, err := cfg.ToolPaths()
	if err != nil {
		log.Warn("read tool config", "path", cfg.Tool.Config, "err", err)
	}

	var baseArgs []string
	if cfg.Tool.Config != config.DefaultToolConfig() {
		baseArgs = []string{"--config-path", cfg.Tool.Config}
	}
	a.adapter = gamdl.NewAdapter(gamdl.Options{
		Tool:         cfg.Tool.Path,
		BaseArgs:     baseArgs,
		ExtraPath:    cfg.Tool.ExtraPath,
		WorkDir:      cfg.Tool.WorkDir,
		ProgressDir:  cfg.Progress.Dir,
		LogMaxSizeMB: cfg.Log.MaxSizeMB,
	}, downloader.NewChanReporter(a.events))
	a.adapter.SetLogger(log)
	if f, ok := parser.Lookup(cfg.Tool.OutputFormat); ok {
		a.adapter.SetParser(parser.New(f))
	}

	jobs := repo.NewInMemoryJobRepo()
	a.rec = reconciler.New(log, jobs, a.events)
	a.svc = service.NewDownload(log, jobs, history, a.adapter, service.Options{
		DefaultCodec: cfg.Codec(),
		TerminalTTL:  cfg.Status.TerminalTTL,
		Peers:        a.adapter,
	})
	a.lister = catalog.NewLister(log, catalog.Options{
		Python:      cfg.Tool.Python,
		OutputDir:   paths.OutputDir,
		CookiesPath: paths.CookiesPath,
		Timeout:     cfg.Fetch.Timeout,
	})
	return a, nil
}

// start runs the reconciler and the sweeper until ctx is done.
func (a *app) start(ctx context.Context) {
	a.rec.Run()
	go service.RunSweeper(ctx, a.svc, a.cfg.Status.SweepInterval)
}

// drain refuses new downloads, waits for running ones to exit and applies
// their final events, then moves finished jobs to history. Their outcome
// stays in the progress directory for the next host process to report. It
// gives up when ctx is done.
func (a *app) drain(ctx context.Context) {
	a.adapter.Close()
	if n := a.adapter.Active(); n > 0 {
		a.log.Info("waiting for downloads to finish", "active", n)
	}
	done := make(chan struct{})
	go func() {
		a.adapter.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown before downloads finished", "active", a.adapter.Active())
		return
	}

	// no Start can follow Close, so nothing reports after Wait
	close(a.events)
	a.rec.Wait()
	if _, err := a.svc.Flush(context.Background()); err != nil {
		a.log.Error("move finished jobs to history", "err", err)
	}
}

func (a *app) close() {
	a.rec.Stop()
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Error("close", "err", err)
		}
	}
}
