// Package httpapi implements component L's HTTP surface: the discovery
// core's /explore turn endpoint, the rerun chip-refinement endpoint, and
// the WHY-stream endpoint.
package httpapi

import "net/http"

// Server exposes the discovery-core HTTP endpoints.
type Server struct {
	service *Service
	mux     *http.ServeMux
}

// NewServer creates the HTTP API server wired to the discovery service.
func NewServer(service *Service) *Server {
	s := &Server{service: service, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /discovery/explore", s.handleExplore)
	s.mux.HandleFunc("POST /discovery/explore/rerun", s.handleExploreRerun)
	s.mux.HandleFunc("GET /discovery/explore/why", s.handleExploreWhy)
	s.mux.HandleFunc("GET /discovery/healthz", s.handleHealthz)
}
