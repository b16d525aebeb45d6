package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/adrennan/cordix/pkg/telemetry"
)

// sendSuccess writes a 200 response carrying data in the standard
// envelope.
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// sendError writes statusCode carrying message in the standard
// envelope.
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Error: message})
}

// responseWriter wraps http.ResponseWriter to capture the status code
// a handler actually wrote, for instrumentation.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// instrument wraps handler so every request records its method, route,
// status, and duration through m. Passing a nil m still instruments
// (RecordHTTPRequest is itself nil-safe), matching the rest of this
// codebase's nil-safe metrics convention.
func instrument(m *telemetry.Metrics, route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)
		m.RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	}
}
