package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	v1 "github.com/tinoosan/tunebridge/api/v1"
	"github.com/tinoosan/tunebridge/internal/auth"
	"github.com/tinoosan/tunebridge/internal/host"
	"github.com/tinoosan/tunebridge/internal/service"
)

// New sets up the bridge routes and required middleware. An empty token
// leaves the API unauthenticated.
func New(logger *slog.Logger, downloadSvc service.Download, lister host.Lister, token string) *mux.Router {

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := downloadSvc.Ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	h := v1.NewHandler(logger, downloadSvc, lister)

	r.Use(v1.RequestID)
	r.Use(h.Log)
	r.Use(auth.Middleware(token))

	api := r.PathPrefix("/v1").Subrouter()

	// GETs
	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/items", h.GetItems)
	get.HandleFunc("/status", h.GetStatus)
	get.HandleFunc("/history", h.GetHistory)
	get.HandleFunc("/ws", h.ServeWS)

	// POSTs
	post := api.Methods("POST").Subrouter()
	post.HandleFunc("/downloads", h.AddDownload)
	post.Use(v1.MiddlewareDownloadValidation)

	return r
}
