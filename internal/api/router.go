package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the gateway routes. Metrics are served from gatherer when
// it is non-nil.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(h.authenticate)
	v1.HandleFunc("/courses", h.Courses).Methods(http.MethodGet)
	v1.HandleFunc("/courses/owned", h.OwnedCourses).Methods(http.MethodGet)
	v1.HandleFunc("/purchases", h.Purchase).Methods(http.MethodPost)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireAdmin)
	admin.HandleFunc("/courses", h.ManagedCourses).Methods(http.MethodGet)
	admin.HandleFunc("/search/{hash}", h.Search).Methods(http.MethodGet)
	admin.HandleFunc("/verify", h.Verify).Methods(http.MethodPost)
	admin.HandleFunc("/courses/{hash}/{action:activate|deactivate}", h.ChangeState).Methods(http.MethodPost)

	return r
}
