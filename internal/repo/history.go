package repo

import (
	"context"
	"sync"

	"github.com/tinoosan/tunebridge/internal/data"
)

const (
	DefaultHistorySize = 200
	// MaxHistoryLimit caps how many entries one Recent call may return.
	MaxHistoryLimit = 1000
)

// InMemoryHistory is a bounded ring of the most recent entries.
type InMemoryHistory struct {
	mu      sync.RWMutex
	entries []data.HistoryEntry
	next    int
	full    bool
}

// NewInMemoryHistory keeps up to size entries; size <= 0 uses
// DefaultHistorySize.
func NewInMemoryHistory(size int) *InMemoryHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &InMemoryHistory{entries: make([]data.HistoryEntry, size)}
}

var _ HistoryRepo = (*InMemoryHistory)(nil)

func (h *InMemoryHistory) Record(ctx context.Context, e data.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
	return nil
}

func (h *InMemoryHistory) Recent(ctx context.Context, limit int) ([]data.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := h.next
	if h.full {
		n = len(h.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]data.HistoryEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out, nil
}
