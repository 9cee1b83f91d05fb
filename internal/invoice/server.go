package invoice

import (
	"log/slog"
	"net/http"
)

// Server exposes the document pipeline over HTTP for the editing front-end.
type Server struct {
	service *Service
	mux     *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service) *Server {
	return NewServerWithMux(service, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, mux *http.ServeMux) *Server {
	s := &Server{
		service: service,
		mux:     mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Per-document operations (most specific paths first)
	s.mux.HandleFunc("GET /api/documents/{id}/image", s.handleGetDocumentImage)
	s.mux.HandleFunc("POST /api/documents/{id}/extract", s.handleExtractDocument)
	s.mux.HandleFunc("POST /api/documents/{id}/fields", s.handleUpdateFields)
	s.mux.HandleFunc("POST /api/documents/{id}/approve", s.handleApproveDocument)
	s.mux.HandleFunc("POST /api/documents/{id}/unapprove", s.handleUnapproveDocument)
	s.mux.HandleFunc("POST /api/documents/{id}/clear", s.handleClearDocument)
	s.mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	s.mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	// Collection operations
	s.mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	s.mux.HandleFunc("POST /api/documents", s.handleUploadDocument)
	s.mux.HandleFunc("DELETE /api/documents", s.handleDeleteAllDocuments)
	s.mux.HandleFunc("POST /api/documents/reorder", s.handleReorderDocuments)

	// Bulk pipeline operations
	s.mux.HandleFunc("POST /api/extract", s.handleExtractAll)
	s.mux.HandleFunc("POST /api/approve", s.handleApproveAll)
	s.mux.HandleFunc("POST /api/anomalies", s.handleCheckAnomalies)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/scan", s.handleScan)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	// Wrap the mux with CORS middleware to handle all requests including OPTIONS
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
