package repo

import (
	"context"
	"time"

	"github.com/tinoosan/tunebridge/internal/data"
)

// JobRepo is the process registry: every job whose process is alive or
// whose terminal status has not been reported yet.
type JobRepo interface {
	JobReader
	JobWriter
}

type JobReader interface {
	List(ctx context.Context) (data.Jobs, error)
	Get(ctx context.Context, id string) (*data.Job, error)
}

type JobWriter interface {
	// Insert adds job unless its ID is already registered, in which case it
	// returns data.ErrDuplicate.
	Insert(ctx context.Context, job *data.Job) (*data.Job, error)
	// Update applies mutate to the stored job atomically with respect to
	// readers. An error from mutate discards the change.
	Update(ctx context.Context, id string, mutate func(*data.Job) error) (*data.Job, error)
	// Remove deletes the given jobs and returns how many existed.
	Remove(ctx context.Context, ids ...string) (int, error)
	// RemoveTerminal deletes those of the given jobs that are terminal and
	// returns exactly the jobs it deleted. Concurrent callers never both
	// receive the same job.
	RemoveTerminal(ctx context.Context, ids ...string) (data.Jobs, error)
	// EvictTerminal removes terminal jobs that finished before cutoff and
	// returns them.
	EvictTerminal(ctx context.Context, cutoff time.Time) (data.Jobs, error)
}

// HistoryRepo keeps a record of finished jobs.
type HistoryRepo interface {
	Record(ctx context.Context, e data.HistoryEntry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]data.HistoryEntry, error)
}
