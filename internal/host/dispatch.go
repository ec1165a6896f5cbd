// Package host dispatches extension requests to the download service and
// the item lister. The same dispatcher serves native messaging and the
// local WebSocket bridge.
package host

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tinoosan/tunebridge/internal/data"
	"github.com/tinoosan/tunebridge/internal/reqid"
	"github.com/tinoosan/tunebridge/internal/resource"
	"github.com/tinoosan/tunebridge/internal/service"
)

// Lister lists the child items of a resource.
type Lister interface {
	FetchItems(ctx context.Context, ref resource.Ref) (*data.Listing, error)
}

type Dispatcher struct {
	svc    service.Download
	lister Lister
	log    *slog.Logger
}

func NewDispatcher(log *slog.Logger, svc service.Download, lister Lister) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{svc: svc, lister: lister, log: log}
}

// Handle decodes raw and dispatches it. It always returns a response.
func (d *Dispatcher) Handle(ctx context.Context, raw json.RawMessage) any {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		d.log.Warn("decode request", "err", err)
		return ErrorResponse{Error: "Invalid message"}
	}
	return d.Dispatch(ctx, req)
}

// Dispatch runs one request under a fresh request id.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) any {
	ctx, id := reqid.Ensure(ctx)
	log := d.log.With("request_id", id, "action", req.Action)

	switch req.Action {
	case ActionDownload:
		res, err := d.svc.Download(ctx, service.DownloadRequest{URL: req.URL, SelectedIDs: req.SelectedIDs, Codec: req.Codec})
		if err != nil {
			log.Warn("download rejected", "url", req.URL, "err", err)
			return Failure(err)
		}
		return DownloadResponse{Success: true, Message: res.Message, JobID: res.Job.ID}

	case ActionFetchItems:
		if req.URL == "" {
			return Failure(data.ErrMissingURL)
		}
		ref, err := resource.Parse(req.URL)
		if err != nil {
			return Failure(err)
		}
		listing, err := d.lister.FetchItems(ctx, ref)
		if err != nil {
			log.Warn("fetch items failed", "resource", ref.Key(), "err", err)
			return Failure(err)
		}
		return ItemsResponse{Success: true, Type: listing.Type, ArtistName: listing.ArtistName, AlbumName: listing.AlbumName, Items: listing.Items}

	case ActionCheckStatus:
		snap, err := d.svc.CheckStatus(ctx)
		if err != nil {
			log.Error("check status", "err", err)
			return Failure(err)
		}
		return NewStatusResponse(snap)

	case ActionHistory:
		entries, err := d.svc.History(ctx, req.Limit)
		if err != nil {
			log.Error("history", "err", err)
			return Failure(err)
		}
		if entries == nil {
			entries = []data.HistoryEntry{}
		}
		return HistoryResponse{Success: true, Entries: entries}
	}
	return ErrorResponse{Error: "Unknown action: " + req.Action}
}
