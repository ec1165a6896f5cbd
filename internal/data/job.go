package data

import (
	"fmt"
	"time"
)

// Job is a single launched download process and everything the output
// parser has learned about it so far.
type Job struct {
	ID          string          `json:"id"`
	Resource    string          `json:"resource"`
	SelectedIDs []string        `json:"selectedIds,omitempty"`
	Targets     []string        `json:"targets,omitempty"`
	Codec       string          `json:"codec"`
	PID         int             `json:"pid,omitempty"`
	Status      JobStatus       `json:"status"`
	Progress    TrackProgress   `json:"progress"`
	Tracks      []TrackProgress `json:"tracks,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
	Done        bool            `json:"done"`
	ExitCode    int             `json:"exitCode"`
	CreatedAt   time.Time       `json:"createdAt"`
	FinishedAt  time.Time       `json:"finishedAt,omitempty"`

	// batch bookkeeping for runs that restart track numbering
	batchBase    int
	batchCurrent int
	batchTotal   int
}

type Jobs []*Job

type JobStatus string

const (
	StatusStarting JobStatus = "Starting"
	StatusRunning  JobStatus = "Running"
	StatusComplete JobStatus = "Complete"
	StatusFailed   JobStatus = "Failed"
)

// IsTerminal reports whether the job's process has exited.
func (s JobStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Alive reports whether the job still owns a running process.
func (j *Job) Alive() bool {
	return !j.Done
}

// Clone returns a deep copy so callers never share slices with the registry.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.SelectedIDs != nil {
		c.SelectedIDs = append([]string(nil), j.SelectedIDs...)
	}
	if j.Targets != nil {
		c.Targets = append([]string(nil), j.Targets...)
	}
	if j.Tracks != nil {
		c.Tracks = append([]TrackProgress(nil), j.Tracks...)
	}
	if j.Errors != nil {
		c.Errors = append([]string(nil), j.Errors...)
	}
	return &c
}

func (js Jobs) Clone() Jobs {
	out := make(Jobs, len(js))
	for i, j := range js {
		out[i] = j.Clone()
	}
	return out
}

// StartTrack records that the tool began track current of total. Indexes
// are relative to the tool's current batch; a single run that walks several
// albums restarts its numbering, so a non-increasing index opens a new batch
// and the job-wide counters keep growing. The previous track stays in Tracks.
func (j *Job) StartTrack(current, total int, name string) {
	if j.batchCurrent > 0 && current <= j.batchCurrent {
		j.batchBase += max(j.batchTotal, j.batchCurrent)
		j.batchTotal = 0
	}
	j.batchCurrent = current
	j.batchTotal = max(j.batchTotal, total)

	j.Progress.Name = name
	j.Progress.Percent = 0
	j.Progress.setPosition(j.batchBase+current, j.batchBase+total)
	j.Tracks = append(j.Tracks, j.Progress)
	if j.Status == StatusStarting {
		j.Status = StatusRunning
	}
}

// SetPercent updates the active track's percentage.
func (j *Job) SetPercent(pct float64) {
	j.Progress.SetPercent(pct)
	j.syncLastTrack()
	if j.Status == StatusStarting {
		j.Status = StatusRunning
	}
}

// CompleteTrack counts one more finished track.
func (j *Job) CompleteTrack(current, total int) {
	if current > 0 {
		j.batchTotal = max(j.batchTotal, total)
		j.Progress.setPosition(j.batchBase+current, j.batchBase+total)
	}
	j.Progress.Percent = 100
	j.Progress.MarkCompleted()
	j.syncLastTrack()
}

// AddError appends a per-track or per-job error message.
func (j *Job) AddError(msg string) {
	if msg == "" {
		return
	}
	j.Errors = append(j.Errors, msg)
}

// Finish marks the job terminal. A non-zero exit without any recorded error
// still leaves one behind so a failed run is never shown as a success.
func (j *Job) Finish(exitCode int, cause string, at time.Time) {
	j.Done = true
	j.Progress.Finished = true
	j.ExitCode = exitCode
	j.FinishedAt = at
	switch {
	case cause != "":
		j.AddError(fmt.Sprintf("download process terminated unexpectedly: %s", cause))
	case exitCode != 0 && len(j.Errors) == 0:
		j.AddError(fmt.Sprintf("download exited with status %d", exitCode))
	}
	if len(j.Errors) > 0 {
		j.Status = StatusFailed
	} else {
		j.Status = StatusComplete
	}
}

func (j *Job) syncLastTrack() {
	if n := len(j.Tracks); n > 0 {
		j.Tracks[n-1] = j.Progress
	}
}
