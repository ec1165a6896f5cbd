// Package v1 is the local HTTP bridge. It exposes the native messaging
// actions as REST endpoints and as a WebSocket that speaks the native
// message protocol.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"nhooyr.io/websocket"

	"github.com/tinoosan/tunebridge/internal/data"
	"github.com/tinoosan/tunebridge/internal/host"
	"github.com/tinoosan/tunebridge/internal/nativemsg"
	"github.com/tinoosan/tunebridge/internal/resource"
	"github.com/tinoosan/tunebridge/internal/service"
)

// OriginPatterns are the WebSocket origins accepted besides same-host ones.
var OriginPatterns = []string{"chrome-extension://*", "moz-extension://*"}

type Handler struct {
	l        *slog.Logger
	svc      service.Download
	lister   host.Lister
	dispatch *host.Dispatcher
}

func NewHandler(l *slog.Logger, svc service.Download, lister host.Lister) *Handler {
	return &Handler{l: l, svc: svc, lister: lister, dispatch: host.NewDispatcher(l, svc, lister)}
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, data.ErrMissingURL), errors.Is(err, data.ErrInvalidResource):
		return http.StatusBadRequest
	case errors.Is(err, data.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, data.ErrUnsupportedListing):
		return http.StatusUnprocessableEntity
	case data.IsLaunchError(err), errors.Is(err, data.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case data.IsFetchError(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	markErr(w, err)
	writeJSON(w, statusFor(err), host.Failure(err))
}

func (h *Handler) AddDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyRequest{}).(service.DownloadRequest)
	if !ok {
		markErr(w, ErrRequestCtx)
		writeJSON(w, http.StatusInternalServerError, host.ErrorResponse{Error: ErrRequestCtx.Error()})
		return
	}
	res, err := h.svc.Download(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, host.DownloadResponse{Success: true, Message: res.Message, JobID: res.Job.ID})
}

func (h *Handler) GetItems(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		markErr(w, ErrItemsURL)
		writeJSON(w, http.StatusBadRequest, host.ErrorResponse{Error: ErrItemsURL.Error()})
		return
	}
	ref, err := resource.Parse(raw)
	if err != nil {
		h.fail(w, err)
		return
	}
	listing, err := h.lister.FetchItems(r.Context(), ref)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, host.ItemsResponse{
		Success:    true,
		Type:       listing.Type,
		ArtistName: listing.ArtistName,
		AlbumName:  listing.AlbumName,
		Items:      listing.Items,
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.CheckStatus(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, host.NewStatusResponse(snap))
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			markErr(w, ErrHistoryLimit)
			writeJSON(w, http.StatusBadRequest, host.ErrorResponse{Error: ErrHistoryLimit.Error()})
			return
		}
		limit = n
	}
	entries, err := h.svc.History(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	if entries == nil {
		entries = []data.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, host.HistoryResponse{Success: true, Entries: entries})
}

// ServeWS upgrades to a WebSocket and answers each text message with exactly
// one response, in order, until the peer closes.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: OriginPatterns})
	if err != nil {
		markErr(w, err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusInternalError, "unexpected close") }()
	conn.SetReadLimit(nativemsg.MaxIncoming)

	ctx := r.Context()
	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				h.l.Warn("websocket read", "err", err)
			}
			return
		}

		var resp any
		if typ != websocket.MessageText || !json.Valid(msg) {
			resp = host.ErrorResponse{Error: "Invalid message"}
		} else {
			resp = h.dispatch.Handle(ctx, msg)
		}
		b, err := json.Marshal(resp)
		if err != nil {
			h.l.Error("encode websocket response", "err", err)
			return
		}
		if len(b) > nativemsg.MaxOutgoing {
			b, _ = json.Marshal(host.ErrorResponse{Error: "Response too large"})
		}
		if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
			h.l.Warn("websocket write", "err", err)
			return
		}
	}
}
