package gamdl

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tinoosan/tunebridge/internal/data"
	"github.com/tinoosan/tunebridge/internal/downloader"
	"github.com/tinoosan/tunebridge/internal/parser"
)

const stateExt = ".json"

// jobState is what another host process needs to report a job: the job as
// launched, its pid and, once known, how it exited. Progress is not stored;
// it is replayed from the output log.
type jobState struct {
	Job  *data.Job  `json:"job"`
	PID  int        `json:"pid"`
	Exit *exitState `json:"exit,omitempty"`
}

type exitState struct {
	Code int       `json:"code"`
	Err  string    `json:"err,omitempty"`
	At   time.Time `json:"at"`
}

func (a *Adapter) statePath(id string) string {
	return filepath.Join(a.opts.ProgressDir, logPrefix+id+stateExt)
}

func (a *Adapter) logPath(id string) string {
	return filepath.Join(a.opts.ProgressDir, logPrefix+id+".log")
}

func (a *Adapter) saveState(job *data.Job, pid int) {
	if a.opts.ProgressDir == "" {
		return
	}
	st := jobState{Job: job.Clone(), PID: pid}
	st.Job.PID = pid
	if err := writeState(a.statePath(job.ID), st); err != nil {
		a.log.Warn("write job state", "id", job.ID, "err", err)
	}
}

// markExited records exit in the job's state file. A state file that is
// gone was already reported by another process and is not recreated.
func (a *Adapter) markExited(id string, exit *downloader.Exit) {
	if a.opts.ProgressDir == "" {
		return
	}
	path := a.statePath(id)
	st, err := readState(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			a.log.Warn("read job state", "id", id, "err", err)
		}
		return
	}
	st.Exit = &exitState{Code: exit.Code, At: a.now()}
	if exit.Err != nil {
		st.Exit.Err = exit.Err.Error()
	}
	if err := writeState(path, st); err != nil {
		a.log.Warn("write job state", "id", id, "err", err)
	}
}

// PeerJobs rebuilds the jobs recorded in the progress directory by other
// adapters, usually other host processes. Jobs this adapter is still
// watching are skipped. A job whose process is gone without a recorded exit
// is reported failed. Terminal records older than an hour are deleted
// instead of returned.
func (a *Adapter) PeerJobs(ctx context.Context) (data.Jobs, error) {
	if a.opts.ProgressDir == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(a.opts.ProgressDir, logPrefix+"*"+stateExt))
	if err != nil {
		return nil, err
	}
	cutoff := a.now().Add(-logMaxAge)
	var out data.Jobs
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		id := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), logPrefix), stateExt)
		if a.watching(id) {
			continue
		}
		st, err := readState(m)
		if err != nil || st.Job == nil || st.Job.ID == "" {
			a.log.Debug("skip job state", "path", m, "err", err)
			continue
		}
		if st.Exit != nil && st.Exit.At.Before(cutoff) {
			_ = os.Remove(m)
			continue
		}
		out = append(out, a.rebuild(st))
	}
	return out, nil
}

// Forget deletes the state file of id so no process reports it again.
func (a *Adapter) Forget(ctx context.Context, id string) error {
	if a.opts.ProgressDir == "" {
		return nil
	}
	if err := os.Remove(a.statePath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (a *Adapter) watching(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.active[id]
	return ok
}

func (a *Adapter) rebuild(st jobState) *data.Job {
	j := st.Job.Clone()
	j.PID = st.PID
	now := a.now()
	if f, err := os.Open(a.logPath(j.ID)); err == nil {
		_ = a.parser.Scan(f, func(raw string, l parser.Line) {
			if t, ok := downloader.EventFor(l); ok {
				line := l
				downloader.Apply(j, downloader.Event{ID: j.ID, Type: t, Line: &line}, now)
			}
		})
		_ = f.Close()
	}
	switch {
	case st.Exit != nil:
		j.Finish(st.Exit.Code, st.Exit.Err, st.Exit.At)
	case !processAlive(st.PID):
		j.Finish(-1, "no exit status was recorded", now)
	}
	return j
}

func readState(path string) (jobState, error) {
	var st jobState
	b, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(b, &st)
	return st, err
}

// writeState replaces path atomically so readers never see a partial file.
func writeState(path string, st jobState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
