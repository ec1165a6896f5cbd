package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/tunebridge/internal/data"
	"github.com/tinoosan/tunebridge/internal/downloader"
	"github.com/tinoosan/tunebridge/internal/metrics"
	"github.com/tinoosan/tunebridge/internal/repo"
)

// Reconciler consumes downloader events and applies them to the registry.
// It is the only writer of parsed progress, so events for one job are
// applied strictly in the order they were reported.
type Reconciler struct {
	repo   repo.JobRepo
	events <-chan downloader.Event
	log    *slog.Logger
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Reconciler that processes downloader events and mutates the
// registry accordingly.
func New(log *slog.Logger, repo repo.JobRepo, events <-chan downloader.Event) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{repo: repo, events: events, log: log, now: time.Now, ctx: context.Background()}
}

// Run starts the reconciliation loop.
func (r *Reconciler) Run() {
	r.stop = make(chan struct{})
	r.ctx, r.cancel = context.WithCancel(r.ctx)
	// Tag this run with a stable operation_id for easier correlation.
	opID := uuid.NewString()
	r.log = r.log.With("operation_id", opID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.stop:
				return
			case e, ok := <-r.events:
				if !ok {
					return
				}
				r.handle(e)
			}
		}
	}()
}

// Wait blocks until the loop exits on its own, which happens once the
// event channel is closed and every buffered event has been applied.
func (r *Reconciler) Wait() { r.wg.Wait() }

// Stop terminates the reconciliation loop.
func (r *Reconciler) Stop() {
	if r.stop != nil {
		close(r.stop)
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
	}
}

func (r *Reconciler) handle(e downloader.Event) {
	metrics.DownloadEvents.WithLabelValues(strings.ToLower(string(e.Type))).Inc()

	switch e.Type {
	case downloader.EventStart:
		r.log.Info("download running", "id", e.ID)
		return
	case downloader.EventFinished:
		r.log.Info("tool reported finish", "id", e.ID)
		return
	case downloader.EventTrackError:
		if e.Line != nil {
			r.log.Warn("track error", "id", e.ID, "msg", e.Line.Message)
		}
	case downloader.EventTrackStart, downloader.EventProgress, downloader.EventTrackDone, downloader.EventExit:
	default:
		r.log.Warn("unknown event type", "id", e.ID, "type", e.Type)
		return
	}
	if e.Type != downloader.EventExit && e.Line == nil {
		return
	}

	at := r.now()
	updated, err := r.repo.Update(r.ctx, e.ID, func(j *data.Job) error {
		downloader.Apply(j, e, at)
		return nil
	})
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			r.log.Debug("event for unregistered job", "id", e.ID, "type", e.Type)
			return
		}
		r.log.Error("update", "id", e.ID, "type", e.Type, "err", err)
		return
	}
	if e.Type == downloader.EventExit {
		r.log.Info("download finished", "id", e.ID, "status", updated.Status, "completed", updated.Progress.Completed, "errors", len(updated.Errors))
	}
}
