package server

import (
	"net/http"
	"regexp"

	"careeradvisor/internal/advisor"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := s.setupRoutes()
	return s.om.HTTPMiddleware()(s.requestIDMiddleware(mux))
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	requestLimit := s.requestSizeLimitMiddleware()

	mux.HandleFunc("GET /{$}", s.indexHandler)
	mux.HandleFunc("POST /analyze",
		s.rateLimitMiddleware("/analyze")(requestLimit(s.analyzePageHandler)))

	mux.HandleFunc("POST /api/v1/analyze",
		s.rateLimitMiddleware("/api/v1/analyze")(requestLimit(s.apiAnalyzeHandler)))
	mux.HandleFunc("POST /api/v1/extract",
		s.rateLimitMiddleware("/api/v1/extract")(requestLimit(s.apiExtractHandler)))

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	if metrics := s.om.MetricsHandler(); metrics != nil {
		mux.Handle("GET "+s.om.MetricsEndpoint(), metrics)
	}

	return mux
}

// requestIDMiddleware accepts a well-formed incoming X-Request-ID or mints a
// new one, echoes it, and stores it in the request context.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(advisor.ContextWithRequestID(r.Context(), id)))
	})
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

func requestIDOf(r *http.Request) string {
	return advisor.RequestIDFrom(r.Context())
}
