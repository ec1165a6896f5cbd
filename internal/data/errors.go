package data

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("download not found")
	ErrDuplicate          = errors.New("download already in progress")
	ErrInvalidResource    = errors.New("invalid Apple Music URL")
	ErrMissingURL         = errors.New("no URL provided")
	ErrUnsupportedListing = errors.New("resource type does not support item listing")
	ErrToolNotFound       = errors.New("gamdl not found. Install with: pipx install gamdl")
	ErrShuttingDown       = errors.New("host is shutting down")
)

// LaunchError means the downloader could not be started at all. It points at
// a broken installation rather than a problem with the requested content.
type LaunchError struct {
	Tool string
	Err  error
}

func (e *LaunchError) Error() string {
	if e.Tool == "" {
		return "launch download: " + e.Err.Error()
	}
	return fmt.Sprintf("launch %s: %v", e.Tool, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// FetchError means an item listing query failed. It is distinct from a
// successful listing that returned no items.
type FetchError struct {
	Resource string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch items for %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsLaunchError reports whether err carries a *LaunchError.
func IsLaunchError(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// IsFetchError reports whether err carries a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
