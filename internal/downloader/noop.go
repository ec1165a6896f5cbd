package downloader

import (
	"context"
	"log/slog"

	"github.com/tinoosan/tunebridge/internal/data"
)

type noopDownloader struct {
	log *slog.Logger
	rep Reporter
}

// NewNoopDownloader returns a Downloader that launches nothing. Each job
// reports Start followed by a clean Exit, which is enough to exercise the
// registry and status flow without the tool installed.
func NewNoopDownloader(log *slog.Logger, rep Reporter) Downloader {
	if log == nil {
		log = slog.Default()
	}
	return &noopDownloader{log: log, rep: rep}
}

func (d *noopDownloader) Start(ctx context.Context, job *data.Job) (int, error) {
	d.log.Info("noop: start", "id", job.ID, "resource", job.Resource)
	if d.rep != nil {
		go func(id string) {
			d.rep.Report(Event{ID: id, Type: EventStart})
			d.rep.Report(Event{ID: id, Type: EventExit, Exit: &Exit{}})
		}(job.ID)
	}
	return 0, nil
}

func (d *noopDownloader) Ping(ctx context.Context) error { return nil }
