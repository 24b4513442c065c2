// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/kvs-playback/internal/api/middleware"
	"github.com/ManuGH/kvs-playback/internal/health"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	ServiceName string
	// Health serves /healthz and /readyz. A nil manager reports healthy with no checks.
	Health *health.Manager
}

// NewRouter exposes the invoker over plain HTTP for local runs. Any method on
// "/" or "/streams" runs a resolution, mirroring the gateway trigger.
func NewRouter(invoker *Invoker, opts RouterOptions) http.Handler {
	hm := opts.Health
	if hm == nil {
		hm = health.NewManager("")
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Metrics)
	r.Use(middleware.OTelHTTP(opts.ServiceName))

	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	streams := streamsHandler(invoker)
	r.HandleFunc("/", streams)
	r.HandleFunc("/streams", streams)
	return r
}

func streamsHandler(invoker *Invoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := invoker.Invoke(r.Context(), TriggerHTTP)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write([]byte(resp.Body))
	}
}
