package repo

import (
	"context"
	"sync"
	"time"

	"github.com/tinoosan/tunebridge/internal/data"
)

// InMemoryJobRepo is the process-wide registry. It starts empty and keeps
// jobs in insertion order so status snapshots are stable between polls.
type InMemoryJobRepo struct {
	mu   sync.RWMutex
	jobs data.Jobs
}

func NewInMemoryJobRepo() *InMemoryJobRepo {
	return &InMemoryJobRepo{jobs: make(data.Jobs, 0)}
}

var _ JobRepo = (*InMemoryJobRepo)(nil)

func (r *InMemoryJobRepo) List(ctx context.Context) (data.Jobs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs.Clone(), nil
}

func (r *InMemoryJobRepo) Get(ctx context.Context, id string) (*data.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, err := r.findByID(id)
	if err != nil {
		return nil, err
	}
	return j.Clone(), nil
}

func (r *InMemoryJobRepo) Insert(ctx context.Context, job *data.Job) (*data.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.findByID(job.ID); err == nil {
		return nil, data.ErrDuplicate
	}
	stored := job.Clone()
	r.jobs = append(r.jobs, stored)
	return stored.Clone(), nil
}

func (r *InMemoryJobRepo) Update(ctx context.Context, id string, mutate func(*data.Job) error) (*data.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, err := r.findByID(id)
	if err != nil {
		return nil, err
	}
	next := cur.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
	}
	// identity is immutable
	next.ID = cur.ID
	*cur = *next
	return cur.Clone(), nil
}

func (r *InMemoryJobRepo) Remove(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.jobs[:0]
	n := 0
	for _, j := range r.jobs {
		if _, ok := drop[j.ID]; ok {
			n++
			continue
		}
		kept = append(kept, j)
	}
	clear(r.jobs[len(kept):])
	r.jobs = kept
	return n, nil
}

func (r *InMemoryJobRepo) RemoveTerminal(ctx context.Context, ids ...string) (data.Jobs, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed data.Jobs
	kept := r.jobs[:0]
	for _, j := range r.jobs {
		if _, ok := want[j.ID]; ok && j.Status.IsTerminal() {
			removed = append(removed, j)
			continue
		}
		kept = append(kept, j)
	}
	clear(r.jobs[len(kept):])
	r.jobs = kept
	return removed, nil
}

func (r *InMemoryJobRepo) EvictTerminal(ctx context.Context, cutoff time.Time) (data.Jobs, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted data.Jobs
	kept := r.jobs[:0]
	for _, j := range r.jobs {
		if j.Status.IsTerminal() && j.FinishedAt.Before(cutoff) {
			evicted = append(evicted, j)
			continue
		}
		kept = append(kept, j)
	}
	clear(r.jobs[len(kept):])
	r.jobs = kept
	return evicted, nil
}

func (r *InMemoryJobRepo) findByID(id string) (*data.Job, error) {
	for _, j := range r.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, data.ErrNotFound
}
