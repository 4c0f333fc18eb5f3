// Package server exposes the dashboard views over HTTP: a JSON API for the
// front-end widgets and a server-rendered HTML report.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Sagar-cesta/heatmap2/internal/analytics"
	"github.com/Sagar-cesta/heatmap2/internal/dashboard"
)

// Server routes HTTP requests to dashboard views.
type Server struct {
	svc *dashboard.Service
	log dashboard.Logger
}

// New returns a Server over the given dashboard service.
func New(svc *dashboard.Service, logger dashboard.Logger) *Server {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Server{svc: svc, log: logger}
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Router builds the HTTP handler.
//
// Routes:
//
//	GET /api/overview                    observations per state
//	GET /api/categories                  category volume per state
//	GET /api/categories/{state}          per-category counts within a state
//	GET /api/negotiated-types            state x negotiated-type pivot
//	GET /api/negotiated-types/{state}    category x negotiated-type pivot
//	GET /api/states                      distinct state names
//	GET /report                          HTML report of all views
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleView(s.svc.Overview))
		r.Get("/categories", s.handleView(s.svc.Categories))
		r.Get("/categories/{state}", s.handleStateView(s.svc.CategoryBreakdown))
		r.Get("/negotiated-types", s.handleView(s.svc.NegotiatedTypes))
		r.Get("/negotiated-types/{state}", s.handleStateView(s.svc.NegotiatedTypeBreakdown))
		r.Get("/states", s.handleStates)
	})

	r.Get("/report", s.handleReport)

	return r
}

func (s *Server) handleView(build func(ctx context.Context) (*dashboard.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := build(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) handleStateView(build func(ctx context.Context, state string) (*dashboard.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := chi.URLParam(r, "state")
		if state == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "state is required"})
			return
		}
		v, err := build(r.Context(), state)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.svc.States(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if states == nil {
		states = []string{}
	}
	writeJSON(w, http.StatusOK, statesBody{States: states})
}

type errorBody struct {
	Error string `json:"error"`
}

type statesBody struct {
	States []string `json:"states"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	var schemaErr *analytics.SchemaError
	if errors.As(err, &schemaErr) {
		status = http.StatusInternalServerError
	}
	s.log.Printf("stage=http method=%s path=%s status=%d err=%v", r.Method, r.URL.Path, status, err)
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
