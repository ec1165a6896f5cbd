package data

import "time"

// HistoryEntry is the record kept for a job once its terminal status has
// been reported or it was evicted.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Resource   string    `json:"resource"`
	Codec      string    `json:"codec"`
	Status     JobStatus `json:"status"`
	Completed  int       `json:"completed"`
	Total      int       `json:"total"`
	Errors     []string  `json:"errors,omitempty"`
	ExitCode   int       `json:"exitCode"`
	CreatedAt  time.Time `json:"createdAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// History returns the history record for a finished job.
func (j *Job) History() HistoryEntry {
	var errs []string
	if len(j.Errors) > 0 {
		errs = append([]string(nil), j.Errors...)
	}
	return HistoryEntry{
		ID:         j.ID,
		Resource:   j.Resource,
		Codec:      j.Codec,
		Status:     j.Status,
		Completed:  j.Progress.Completed,
		Total:      j.Progress.Total,
		Errors:     errs,
		ExitCode:   j.ExitCode,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.FinishedAt,
	}
}
