// Package catalog lists the child items of artist and album pages and marks
// the ones already present in the output directory.
package catalog

import (
	"bytes"
	"cmp"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tinoosan/tunebridge/internal/data"
	"github.com/tinoosan/tunebridge/internal/metrics"
	"github.com/tinoosan/tunebridge/internal/resource"
)

//go:embed fetch.py
var fetchScript string

const DefaultTimeout = 30 * time.Second

var (
	ErrTimeout         = errors.New("request timed out")
	ErrInvalidResponse = errors.New("invalid response from gamdl")
)

// Options configures the metadata query.
type Options struct {
	// Python is an interpreter that can import gamdl. Empty means the pipx
	// venv, then python3.
	Python      string
	OutputDir   string
	CookiesPath string
	Timeout     time.Duration
}

// runFunc executes a command and returns its stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

// Lister answers fetch_items requests. Each call makes exactly one query.
type Lister struct {
	opts Options
	log  *slog.Logger
	run  runFunc
}

func NewLister(log *slog.Logger, opts Options) *Lister {
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Lister{opts: opts, log: log, run: runCommand}
}

type fetchResponse struct {
	Success    bool               `json:"success"`
	Error      string             `json:"error"`
	Type       string             `json:"type"`
	ArtistName string             `json:"artistName"`
	AlbumName  string             `json:"albumName"`
	Items      []data.CatalogItem `json:"items"`
}

// FetchItems lists ref's children. Every failure is a *data.FetchError; a
// listing with no items is a success.
func (l *Lister) FetchItems(ctx context.Context, ref resource.Ref) (*data.Listing, error) {
	key := ref.Key()
	if !ref.SupportsListing() {
		return nil, &data.FetchError{Resource: key, Err: data.ErrUnsupportedListing}
	}
	python, err := l.python(ctx)
	if err != nil {
		return nil, &data.FetchError{Resource: key, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	args := []string{"-c", fetchScript, string(ref.Type), ref.ID}
	if l.opts.CookiesPath != "" {
		args = append(args, l.opts.CookiesPath)
	}
	start := time.Now()
	stdout, stderr, err := l.run(ctx, python, args...)
	metrics.FetchLatency.WithLabelValues(string(ref.Type)).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &data.FetchError{Resource: key, Err: ErrTimeout}
		}
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, &data.FetchError{Resource: key, Err: errors.New(msg)}
	}

	var resp fetchResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &resp); err != nil {
		l.log.Warn("decode item listing", "resource", key, "err", err)
		return nil, &data.FetchError{Resource: key, Err: ErrInvalidResponse}
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &data.FetchError{Resource: key, Err: errors.New(msg)}
	}

	listing := &data.Listing{
		Type:       cmp.Or(resp.Type, string(ref.Type)),
		ArtistName: resp.ArtistName,
		AlbumName:  resp.AlbumName,
		Items:      resp.Items,
	}
	if listing.Items == nil {
		listing.Items = []data.CatalogItem{}
	}
	sortItems(listing.Items)
	l.markDownloaded(listing)
	l.log.Info("listed items", "resource", key, "count", len(listing.Items))
	return listing, nil
}

// sortItems orders albums newest first and songs by disc then track.
func sortItems(items []data.CatalogItem) {
	slices.SortStableFunc(items, func(a, b data.CatalogItem) int {
		if a.Type == data.ItemAlbum && b.Type == data.ItemAlbum {
			return strings.Compare(b.ReleaseDate, a.ReleaseDate)
		}
		return cmp.Or(cmp.Compare(discOf(a), discOf(b)), cmp.Compare(a.TrackNumber, b.TrackNumber))
	})
}

func discOf(it data.CatalogItem) int {
	if it.DiscNumber <= 0 {
		return 1
	}
	return it.DiscNumber
}

// python resolves an interpreter that can import gamdl.
func (l *Lister) python(ctx context.Context) (string, error) {
	if l.opts.Python != "" {
		return l.opts.Python, nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		venv := filepath.Join(home, ".local", "pipx", "venvs", "gamdl", "bin", "python")
		if fi, err := os.Stat(venv); err == nil && !fi.IsDir() {
			return venv, nil
		}
	}
	if _, _, err := l.run(ctx, "python3", "-c", "import gamdl"); err != nil {
		return "", fmt.Errorf("%w: %v", data.ErrToolNotFound, err)
	}
	return "python3", nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
