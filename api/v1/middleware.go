package v1

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tinoosan/tunebridge/internal/host"
	"github.com/tinoosan/tunebridge/internal/service"
)

type ctxKeyRequest struct{}

// downloadBody mirrors the native message so ids may be numbers or strings.
type downloadBody struct {
	URL         string      `json:"url"`
	SelectedIDs host.IDList `json:"selectedIds"`
	Codec       string      `json:"codec"`
}

// MiddlewareDownloadValidation decodes a download request body into the
// request context.
func MiddlewareDownloadValidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body downloadBody
		if err := decodeJSONStrict(w, r, &body, maxBodyBytes, "application/json"); err != nil {
			markErr(w, err)
			if errors.Is(err, ErrContentType) {
				writeJSON(w, http.StatusUnsupportedMediaType, host.ErrorResponse{Error: err.Error()})
				return
			}
			writeJSON(w, http.StatusBadRequest, host.ErrorResponse{Error: "invalid JSON: " + err.Error()})
			return
		}

		req := service.DownloadRequest{URL: body.URL, SelectedIDs: body.SelectedIDs, Codec: body.Codec}
		ctx := context.WithValue(r.Context(), ctxKeyRequest{}, req)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type rwLogger struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (w *rwLogger) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *rwLogger) SetErr(err error) {
	w.err = err
}

func (w *rwLogger) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Hijack lets the WebSocket upgrade take over a logged connection.
func (w *rwLogger) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

type errorSetter interface {
	SetErr(error)
}

func markErr(w http.ResponseWriter, err error) {
	if es, ok := w.(errorSetter); ok {
		es.SetErr(err)
	}
}

// Log writes one access log line per request.
func (h *Handler) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		rw := &rwLogger{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		attrs := []any{
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.status,
			"remote", r.RemoteAddr,
			"ua", r.UserAgent(),
			"dur_ms", time.Since(startTime).Milliseconds(),
			"bytes", rw.bytes,
			"request_id", w.Header().Get(headerRequestID),
		}
		if rw.err != nil {
			h.l.Error(rw.err.Error(), attrs...)
			return
		}
		h.l.Info("request", attrs...)
	})
}
