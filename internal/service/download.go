package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tinoosan/tunebridge/internal/data"
	"github.com/tinoosan/tunebridge/internal/downloadcfg"
	"github.com/tinoosan/tunebridge/internal/downloader"
	"github.com/tinoosan/tunebridge/internal/fp"
	"github.com/tinoosan/tunebridge/internal/repo"
	"github.com/tinoosan/tunebridge/internal/resource"
)

// DefaultTerminalTTL bounds how long a finished job that nobody polled for
// stays registered.
const DefaultTerminalTTL = 10 * time.Minute

type Download interface {
	// Download launches one process for the request and returns as soon as
	// it is running.
	Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error)
	// CheckStatus snapshots the registry. Jobs reported terminal in the
	// snapshot are moved to history.
	CheckStatus(ctx context.Context) (data.StatusSnapshot, error)
	// Sweep evicts terminal jobs older than the TTL and returns how many.
	Sweep(ctx context.Context) (int, error)
	// Flush moves every terminal job to history without marking it
	// reported, so another host process can still show its outcome.
	Flush(ctx context.Context) (int, error)
	History(ctx context.Context, limit int) ([]data.HistoryEntry, error)
	// Ready reports whether downloads can currently be launched.
	Ready(ctx context.Context) error
}

// Peers exposes jobs recorded outside this process's registry, typically
// by other host processes sharing the progress directory.
type Peers interface {
	PeerJobs(ctx context.Context) (data.Jobs, error)
	// Forget marks a job reported so no process shows it again.
	Forget(ctx context.Context, id string) error
}

// Pinger is implemented by history stores that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

type DownloadRequest struct {
	URL         string   `json:"url"`
	SelectedIDs []string `json:"selectedIds,omitempty"`
	Codec       string   `json:"codec,omitempty"`
}

type DownloadResult struct {
	Job     *data.Job `json:"job"`
	Message string    `json:"message"`
}

type Options struct {
	DefaultCodec downloadcfg.Codec
	TerminalTTL  time.Duration
	// Peers, when set, adds jobs owned by other processes to status
	// snapshots and duplicate checks.
	Peers Peers
}

type download struct {
	jobs    repo.JobRepo
	history repo.HistoryRepo
	dlr     downloader.Downloader
	opts    Options
	log     *slog.Logger
	now     func() time.Time
}

func NewDownload(log *slog.Logger, jobs repo.JobRepo, history repo.HistoryRepo, dlr downloader.Downloader, opts Options) Download {
	if log == nil {
		log = slog.Default()
	}
	if history == nil {
		history = repo.NewInMemoryHistory(0)
	}
	if opts.DefaultCodec == "" {
		opts.DefaultCodec = downloadcfg.DefaultCodec
	}
	if opts.TerminalTTL <= 0 {
		opts.TerminalTTL = DefaultTerminalTTL
	}
	return &download{jobs: jobs, history: history, dlr: dlr, opts: opts, log: log, now: time.Now}
}

func (ds *download) Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, data.ErrMissingURL
	}
	ref, err := resource.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	selected := uniqueIDs(req.SelectedIDs)
	codec := downloadcfg.ParseCodec(req.Codec, ds.opts.DefaultCodec)
	opts := downloadcfg.StartOptions{Codec: codec}

	// The placeholder is visible to status polls before the process exists.
	job := &data.Job{
		ID:          JobID(ref, selected),
		Resource:    ref.Key(),
		SelectedIDs: selected,
		Targets:     ref.ItemURLs(selected),
		Codec:       string(codec),
		Status:      data.StatusStarting,
		Progress:    data.TrackProgress{Name: ref.Key(), Total: len(selected)},
		CreatedAt:   ds.now(),
	}
	if ds.peerRunning(ctx, job.ID) {
		return nil, data.ErrDuplicate
	}
	if err := ds.insert(ctx, job); err != nil {
		return nil, err
	}

	pid, err := ds.dlr.Start(ctx, job)
	if err != nil {
		if _, rerr := ds.jobs.Remove(ctx, job.ID); rerr != nil {
			ds.log.Error("remove failed launch", "id", job.ID, "err", rerr)
		}
		if !data.IsLaunchError(err) && !errors.Is(err, data.ErrShuttingDown) {
			err = &data.LaunchError{Err: err}
		}
		return nil, err
	}

	saved, err := ds.jobs.Update(ctx, job.ID, func(j *data.Job) error {
		j.PID = pid
		return nil
	})
	if err != nil {
		// already finished and collected by a status poll
		if !errors.Is(err, data.ErrNotFound) {
			return nil, err
		}
		saved = job
	}

	msg := "Download started in " + opts.Label()
	if len(selected) > 0 {
		msg = fmt.Sprintf("Started downloading %d item(s) in %s", len(job.Targets), opts.Label())
	}
	ds.log.Info("download launched", "id", job.ID, "resource", job.Resource, "pid", pid, "targets", len(job.Targets), "codec", job.Codec)
	return &DownloadResult{Job: saved, Message: msg}, nil
}

// insert registers job. A finished job with the same id that no poll has
// reported yet is retired first, so a relaunch is not a duplicate.
func (ds *download) insert(ctx context.Context, job *data.Job) error {
	_, err := ds.jobs.Insert(ctx, job)
	if !errors.Is(err, data.ErrDuplicate) {
		return err
	}
	if ds.retire(ctx, job.ID) == 0 {
		return err
	}
	_, err = ds.jobs.Insert(ctx, job)
	return err
}

// peerRunning reports whether another process is still running job id.
func (ds *download) peerRunning(ctx context.Context, id string) bool {
	if ds.opts.Peers == nil {
		return false
	}
	peers, err := ds.opts.Peers.PeerJobs(ctx)
	if err != nil {
		ds.log.Warn("list peer jobs", "err", err)
		return false
	}
	for _, p := range peers {
		if p.ID == id && p.Alive() {
			if _, err := ds.jobs.Get(ctx, id); err == nil {
				// ours; the registry decides
				return false
			}
			return true
		}
	}
	return false
}

// History returns up to limit recent entries. Non-positive limits use the
// default and large ones are capped.
func (ds *download) History(ctx context.Context, limit int) ([]data.HistoryEntry, error) {
	if limit <= 0 {
		limit = repo.DefaultHistorySize
	}
	return ds.history.Recent(ctx, min(limit, repo.MaxHistoryLimit))
}

func (ds *download) Ready(ctx context.Context) error {
	if err := ds.dlr.Ping(ctx); err != nil {
		return err
	}
	if p, ok := ds.history.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("history store: %w", err)
		}
	}
	return nil
}

// JobID derives the registry key for a request: the resource type and id
// plus a short fingerprint of the resource and selection.
func JobID(ref resource.Ref, selected []string) string {
	return fmt.Sprintf("%s-%s-%s", ref.Type, ref.ID, fp.Short(fp.Fingerprint(ref.Key(), selected), 8))
}

// uniqueIDs trims and dedupes ids, keeping the caller's order.
func uniqueIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
