package http

import (
	"net/http"
	"time"

	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"
)

var quietPaths = util.NewStringSet("/healthz", "/favicon.ico", "/openapi.json")

// RequestLogger logs one line per request through logrus.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if quietPaths.Has(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := log.WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"elapsed":    time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
				"remote":     util.RemoteIP(r),
			})
			switch {
			case status >= 500:
				entry.Error("Request failed")
			case status >= 400:
				entry.Warning("Request rejected")
			default:
				entry.Info("Request")
			}
		}()
		next.ServeHTTP(ww, r)
	})
}
