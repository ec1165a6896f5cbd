package downloader

import (
	"context"

	"github.com/tinoosan/tunebridge/internal/data"
)

// Downloader launches one external process per job.
type Downloader interface {
	// Start spawns the process for job and returns its pid without waiting
	// for it. Failures to locate or start the tool are *data.LaunchError.
	// Output and exit are delivered asynchronously as Events.
	Start(ctx context.Context, job *data.Job) (int, error)
	// Ping reports whether the tool can currently be resolved.
	Ping(ctx context.Context) error
}
