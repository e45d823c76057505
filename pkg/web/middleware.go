package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/service-catalog/pkg/logging"
	"github.com/ritzau/service-catalog/pkg/metrics"
)

// corsMiddleware answers preflight requests itself, before routing, since the
// router has no OPTIONS routes.
func corsMiddleware(origin string, next http.Handler) http.Handler {
	if origin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")
		if origin != "*" {
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware labels request metrics with the route template so that
// /services/{name} is one series regardless of the name.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := logging.NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)
		metrics.ObserveRequest(route, r.Method, rec.Status(), time.Since(start))
	})
}
