package service

import (
	"context"
	"time"

	"github.com/tinoosan/tunebridge/internal/data"
)

// CheckStatus never touches a process: it reads the registry and the
// peers' records only, so a stuck download cannot stall a poll.
// IsDownloading stays true until every terminal job has been reported once.
func (ds *download) CheckStatus(ctx context.Context) (data.StatusSnapshot, error) {
	jobs, err := ds.jobs.List(ctx)
	if err != nil {
		return data.StatusSnapshot{}, err
	}
	peers := ds.foreign(ctx, jobs)

	snap := data.StatusSnapshot{
		IsDownloading: len(jobs)+len(peers) > 0,
		Tracks:        make([]data.TrackProgress, 0, len(jobs)+len(peers)),
		Errors:        make([]string, 0),
	}
	var reported []string
	for _, j := range jobs {
		add(&snap, j)
		if j.Status.IsTerminal() {
			reported = append(reported, j.ID)
		}
	}
	for _, p := range peers {
		add(&snap, p)
	}
	if n := ds.retire(ctx, reported...); n > 0 {
		ds.log.Info("cleared reported jobs", "count", n)
	}
	for _, p := range peers {
		if p.Status.IsTerminal() {
			ds.forget(ctx, p.ID)
		}
	}
	return snap, nil
}

func add(snap *data.StatusSnapshot, j *data.Job) {
	if j.Alive() {
		snap.ProcessCount++
	}
	tp := j.Progress
	tp.JobID = j.ID
	snap.Tracks = append(snap.Tracks, tp)
	snap.Errors = append(snap.Errors, j.Errors...)
}

// foreign returns the peer jobs that are not in local.
func (ds *download) foreign(ctx context.Context, local data.Jobs) data.Jobs {
	if ds.opts.Peers == nil {
		return nil
	}
	all, err := ds.opts.Peers.PeerJobs(ctx)
	if err != nil {
		ds.log.Warn("list peer jobs", "err", err)
		return nil
	}
	own := make(map[string]struct{}, len(local))
	for _, j := range local {
		own[j.ID] = struct{}{}
	}
	var out data.Jobs
	for _, p := range all {
		if _, ok := own[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}

func (ds *download) Sweep(ctx context.Context) (int, error) {
	evicted, err := ds.jobs.EvictTerminal(ctx, ds.now().Add(-ds.opts.TerminalTTL))
	if err != nil {
		return 0, err
	}
	for _, j := range evicted {
		ds.record(ctx, j)
		ds.forget(ctx, j.ID)
	}
	if len(evicted) > 0 {
		ds.log.Info("evicted unreported jobs", "count", len(evicted), "ttl", ds.opts.TerminalTTL)
	}
	return len(evicted), nil
}

func (ds *download) Flush(ctx context.Context) (int, error) {
	jobs, err := ds.jobs.List(ctx)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		if j.Status.IsTerminal() {
			ids = append(ids, j.ID)
		}
	}
	removed, err := ds.jobs.RemoveTerminal(ctx, ids...)
	if err != nil {
		return 0, err
	}
	for _, j := range removed {
		ds.record(ctx, j)
	}
	return len(removed), nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func RunSweeper(ctx context.Context, svc Download, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = svc.Sweep(ctx)
		}
	}
}

// retire moves the terminal jobs among ids from the registry to history and
// returns how many it moved. A job removed by a concurrent caller is
// recorded by that caller only.
func (ds *download) retire(ctx context.Context, ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	removed, err := ds.jobs.RemoveTerminal(ctx, ids...)
	if err != nil {
		ds.log.Error("remove terminal jobs", "ids", ids, "err", err)
		return 0
	}
	for _, j := range removed {
		ds.record(ctx, j)
		ds.forget(ctx, j.ID)
	}
	return len(removed)
}

func (ds *download) record(ctx context.Context, j *data.Job) {
	if err := ds.history.Record(ctx, j.History()); err != nil {
		ds.log.Warn("record history", "id", j.ID, "err", err)
	}
}

func (ds *download) forget(ctx context.Context, id string) {
	if ds.opts.Peers == nil {
		return
	}
	if err := ds.opts.Peers.Forget(ctx, id); err != nil {
		ds.log.Warn("forget job", "id", id, "err", err)
	}
}
