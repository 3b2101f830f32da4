// Package httpapi is the gateway's REST control surface: listing
// discovered monitors and managing webhook subscriptions. It only touches
// the registry; protocol state stays private to the session engine.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openvitals/einstein/pkg/einstein/registry"
)

type Server struct {
	reg *registry.Registry
	log *slog.Logger
}

func New(reg *registry.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Server{reg: reg, log: logger}
}

// noopWriter discards all log output when no logger is provided.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/monitors", s.listMonitors)
	r.Post("/api/monitor/{mac}/subscribe", s.subscribe)
	r.Get("/subscriptions", s.listSubscriptions)
	r.Delete("/api/subscribe/{id}", s.unsubscribe)
	return r
}

func (s *Server) listMonitors(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.reg.Monitors())
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.reg.Subscriptions())
}

type subscribeRequest struct {
	URL string `json:"url"`
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid webhook url")
		return
	}
	sub := s.reg.Subscribe(mac, req.URL)
	s.log.Info("subscription created",
		"monitor", sub.MonitorID,
		"subscription", sub.SubscriptionID,
		"url", sub.URL)
	s.writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.reg.Unsubscribe(id); err != nil {
		if errors.Is(err, registry.ErrUnknownSubscription) {
			s.writeError(w, http.StatusNotFound, "subscription not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "unsubscribe failed")
		return
	}
	s.log.Info("subscription removed", "subscription", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
