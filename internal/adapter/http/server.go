package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/anm-alert-map/internal/card"
	"github.com/couchcryptid/anm-alert-map/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxStateBody bounds a pushed state document.
const maxStateBody = 1 << 20

// CardService is the card surface the server renders and navigates.
type CardService interface {
	Frame() *card.Frame
	Status() card.Status
	Next() bool
	Prev() bool
	Subscribe() (<-chan *card.Frame, func())
}

// StateSink accepts pushed entity states.
type StateSink interface {
	Apply(states ...domain.EntityState) int
}

// Options wires the server's collaborators. Checks are reported by name on
// the card status endpoint without affecting readiness.
type Options struct {
	Card   CardService
	States StateSink
	Ready  sharedobs.ReadinessChecker
	Checks map[string]sharedobs.ReadinessChecker
	Logger *slog.Logger
}

// Server exposes the rendered map, navigation, state push, live updates,
// and the health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	card       CardService
	states     StateSink
	checks     map[string]sharedobs.ReadinessChecker
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the map, state and ops routes.
func NewServer(addr string, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		card:   opts.Card,
		states: opts.States,
		checks: opts.Checks,
		logger: opts.Logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(opts.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /map", s.handlePage)
	mux.HandleFunc("GET /map.svg", s.handleSVG)
	mux.HandleFunc("GET /map/card", s.handleStatus)
	mux.HandleFunc("POST /map/next", s.handleNavigate(CardService.Next))
	mux.HandleFunc("POST /map/prev", s.handleNavigate(CardService.Prev))
	mux.HandleFunc("POST /states", s.handleStates)
	mux.Handle("GET /map/live", &liveHandler{card: s.card, logger: s.logger})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSVG(w http.ResponseWriter, _ *http.Request) {
	f := s.card.Frame()
	if f == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no map rendered yet"})
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Id", f.ID)
	_, _ = w.Write([]byte(f.SVG))
}

type statusResponse struct {
	card.Status
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.card.Status()}
	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Checks = make(map[string]string, len(s.checks))
		for name, c := range s.checks {
			if err := c.CheckReadiness(ctx); err != nil {
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ready"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type navigateResponse struct {
	Changed bool        `json:"changed"`
	Status  card.Status `json:"status"`
}

func (s *Server) handleNavigate(step func(CardService) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		changed := step(s.card)
		writeJSON(w, http.StatusOK, navigateResponse{Changed: changed, Status: s.card.Status()})
	}
}

// handleStates accepts one entity state or an array of them.
func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxStateBody)
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	states, err := decodeStates(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	applied := s.states.Apply(states...)
	s.logger.Debug("states pushed", "received", len(states), "applied", applied)
	writeJSON(w, http.StatusAccepted, map[string]int{"received": len(states), "applied": applied})
}

func decodeStates(raw json.RawMessage) ([]domain.EntityState, error) {
	var states []domain.EntityState
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &states); err != nil {
			return nil, err
		}
	} else {
		var one domain.EntityState
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		states = []domain.EntityState{one}
	}

	now := domain.Now().UTC()
	for i := range states {
		if states[i].EntityID == "" {
			return nil, domain.ErrMissingEntityID
		}
		if states[i].LastUpdated.IsZero() {
			states[i].LastUpdated = now
		}
	}
	return states, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
