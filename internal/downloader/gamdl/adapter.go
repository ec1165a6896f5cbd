// Package gamdl launches the gamdl command line tool, one process per job,
// and turns its output into downloader events.
package gamdl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/tinoosan/tunebridge/internal/data"
	"github.com/tinoosan/tunebridge/internal/downloadcfg"
	"github.com/tinoosan/tunebridge/internal/downloader"
	"github.com/tinoosan/tunebridge/internal/metrics"
	"github.com/tinoosan/tunebridge/internal/parser"
)

// Options configures how the tool is found and invoked.
type Options struct {
	// Tool is an explicit executable path tried before the usual install
	// locations.
	Tool string
	// BaseArgs precede the codec flags and target URLs on every run.
	BaseArgs []string
	// ExtraPath entries are prepended to PATH ahead of the defaults.
	ExtraPath []string
	// WorkDir is the child's working directory. Empty inherits ours.
	WorkDir string
	// ProgressDir receives one raw output log per job. Empty disables logs.
	ProgressDir string
	// LogMaxSizeMB caps a single output log before it rotates.
	LogMaxSizeMB int
}

// Adapter implements downloader.Downloader by spawning gamdl.
type Adapter struct {
	opts   Options
	rep    downloader.Reporter
	parser *parser.Parser
	log    *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	active map[string]int
	closed bool
	wg     sync.WaitGroup
}

var _ downloader.Downloader = (*Adapter)(nil)

// NewAdapter creates an Adapter that reports events to rep.
func NewAdapter(opts Options, rep downloader.Reporter) *Adapter {
	return &Adapter{
		opts:   opts,
		rep:    rep,
		parser: parser.New(),
		log:    slog.Default(),
		now:    time.Now,
		active: make(map[string]int),
	}
}

// SetLogger allows wiring a shared application logger into the adapter.
func (a *Adapter) SetLogger(l *slog.Logger) {
	if l != nil {
		a.log = l
	}
}

// SetParser replaces the output parser, e.g. to pin a single line format.
// It must be called before the first Start.
func (a *Adapter) SetParser(p *parser.Parser) {
	if p != nil {
		a.parser = p
	}
}

// Ping reports whether the tool can be located.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.locate()
	return err
}

// Active returns the number of processes this adapter is still watching.
func (a *Adapter) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.active)
}

// Wait blocks until every watched process has exited and its events have
// been reported.
func (a *Adapter) Wait() { a.wg.Wait() }

// Close makes every later Start fail with data.ErrShuttingDown. Processes
// already started keep running; Wait still waits for them. Once Close
// returns no further event is reported except for those processes.
func (a *Adapter) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

// Start spawns gamdl for job. The child gets its own process group, a closed
// stdin and a single pipe carrying both stdout and stderr. It is not tied to
// ctx: a download keeps running after the request that started it returns.
func (a *Adapter) Start(ctx context.Context, job *data.Job) (int, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, data.ErrShuttingDown
	}
	a.wg.Add(1)
	a.mu.Unlock()

	pid, err := a.spawn(job)
	if err != nil {
		a.wg.Done()
		return 0, err
	}
	return pid, nil
}

func (a *Adapter) spawn(job *data.Job) (int, error) {
	tool, err := a.locate()
	if err != nil {
		metrics.Launches.WithLabelValues(metrics.LaunchNotFound).Inc()
		return 0, &data.LaunchError{Tool: "gamdl", Err: err}
	}

	cmd := exec.Command(tool, a.args(job)...)
	cmd.Env = a.env()
	cmd.Dir = a.opts.WorkDir
	setProcessGroup(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		metrics.Launches.WithLabelValues(metrics.LaunchError).Inc()
		return 0, &data.LaunchError{Tool: tool, Err: err}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		metrics.Launches.WithLabelValues(metrics.LaunchError).Inc()
		return 0, &data.LaunchError{Tool: tool, Err: err}
	}
	// the child holds its own copy of the write end
	_ = pw.Close()

	pid := cmd.Process.Pid
	metrics.Launches.WithLabelValues(metrics.LaunchOK).Inc()
	metrics.ActiveProcesses.Inc()
	a.mu.Lock()
	a.active[job.ID] = pid
	a.mu.Unlock()

	a.log.Info("download process started", "id", job.ID, "pid", pid, "targets", len(job.Targets), "codec", job.Codec)

	tee := a.openLog(job.ID)
	a.saveState(job, pid)
	go a.watch(job.ID, cmd, pr, tee)
	return pid, nil
}

// watch reports every recognised output line in order, then the exit.
func (a *Adapter) watch(id string, cmd *exec.Cmd, out io.ReadCloser, tee io.WriteCloser) {
	defer a.wg.Done()
	defer func() {
		a.mu.Lock()
		delete(a.active, id)
		a.mu.Unlock()
		metrics.ActiveProcesses.Dec()
	}()

	a.report(downloader.Event{ID: id, Type: downloader.EventStart})

	err := a.parser.Scan(out, func(raw string, l parser.Line) {
		if tee != nil {
			_, _ = fmt.Fprintln(tee, raw)
		}
		metrics.OutputLines.WithLabelValues(string(l.Kind)).Inc()
		t, ok := downloader.EventFor(l)
		if !ok {
			a.log.Debug("unrecognised output", "id", id, "line", l.Message)
			return
		}
		line := l
		a.report(downloader.Event{ID: id, Type: t, Line: &line})
	})
	if err != nil {
		a.log.Warn("read process output", "id", id, "err", err)
		// keep the pipe open until the child exits or it dies on a write
		_, _ = io.Copy(io.Discard, out)
	}
	_ = out.Close()

	exit := exitOf(cmd.Wait())
	if tee != nil {
		_ = tee.Close()
	}
	a.markExited(id, exit)
	a.log.Info("download process exited", "id", id, "code", exit.Code, "err", exit.Err)
	a.report(downloader.Event{ID: id, Type: downloader.EventExit, Exit: exit})
}

func (a *Adapter) report(e downloader.Event) {
	if a.rep != nil {
		a.rep.Report(e)
	}
}

func (a *Adapter) args(job *data.Job) []string {
	opts := downloadcfg.StartOptions{Codec: downloadcfg.Codec(job.Codec)}
	args := make([]string, 0, len(a.opts.BaseArgs)+3+len(job.Targets))
	args = append(args, a.opts.BaseArgs...)
	args = append(args, opts.Args()...)
	args = append(args, job.Targets...)
	return args
}

// exitOf converts a Wait error. A process killed by a signal has no exit
// code and is reported with Err set.
func exitOf(err error) *downloader.Exit {
	if err == nil {
		return &downloader.Exit{}
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if code := ee.ExitCode(); code >= 0 {
			return &downloader.Exit{Code: code}
		}
	}
	return &downloader.Exit{Code: -1, Err: err}
}
