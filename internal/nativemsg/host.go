package nativemsg

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
)

// Handler answers one decoded request with one response value.
type Handler interface {
	Handle(ctx context.Context, req json.RawMessage) any
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req json.RawMessage) any

func (f HandlerFunc) Handle(ctx context.Context, req json.RawMessage) any { return f(ctx, req) }

// Host serves framed requests from a stream, one response per request.
type Host struct {
	h   Handler
	log *slog.Logger
}

func NewHost(log *slog.Logger, h Handler) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{h: h, log: log}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Serve reads requests from r until EOF or ctx is done and writes each
// response to w. Requests are handled in order. A malformed payload gets an
// error response; a broken frame ends the session.
func (h *Host) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := ReadMessage(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				h.log.Info("native messaging stream closed")
				return nil
			}
			return err
		}

		var resp any
		if !json.Valid(msg) {
			resp = errorResponse{Error: "Invalid message"}
		} else {
			resp = h.h.Handle(ctx, msg)
		}
		if err := h.write(bw, resp); err != nil {
			return err
		}
	}
}

func (h *Host) write(bw *bufio.Writer, resp any) error {
	err := WriteJSON(bw, resp)
	if errors.Is(err, ErrTooLarge) {
		h.log.Warn("response too large", "err", err)
		err = WriteJSON(bw, errorResponse{Error: "Response too large"})
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}
