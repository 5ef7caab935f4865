package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/gwent-leaderboard/internal/metrics"
	"github.com/gwent-leaderboard/internal/service"
	"github.com/gwent-leaderboard/internal/websocket"
)

// maxBodyBytes caps player write bodies
const maxBodyBytes = 1 << 20

// Options wires the optional surfaces of the API
type Options struct {
	Hub            *websocket.Hub
	Metrics        *metrics.Service
	MetricsHandler http.Handler
	DefaultEdition domain.Edition
}

// Handler provides HTTP handlers for the leaderboard API
type Handler struct {
	service        *service.PlayerService
	hub            *websocket.Hub
	metrics        *metrics.Service
	metricsHandler http.Handler
	defaultEdition domain.Edition
	logger         *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.PlayerService, opts Options, logger *slog.Logger) *Handler {
	h := &Handler{
		service:        service,
		hub:            opts.Hub,
		metrics:        opts.Metrics,
		metricsHandler: opts.MetricsHandler,
		defaultEdition: opts.DefaultEdition,
		logger:         logger,
	}
	if h.defaultEdition == "" {
		h.defaultEdition = domain.EditionClassic
	}
	return h
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)
	if h.metrics != nil {
		r.Use(h.instrument)
	}

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	if h.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", h.metricsHandler)
	}

	// WebSocket endpoint
	if h.hub != nil {
		r.Get("/ws", h.HandleWebSocket)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.RankPlayers)
			r.Post("/", h.CreatePlayer)
			r.Put("/", h.UpdatePlayer)
			r.Delete("/", h.DeletePlayer)
			r.Delete("/{playerID}", h.DeletePlayer)
		})

		r.Get("/editions", h.ListEditions)
		r.Get("/editions/{edition}", h.GetEdition)

		if h.hub != nil {
			r.Get("/ws/stats", h.GetWebSocketStats)
		}
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// instrument records request counts and latency by route pattern
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a core error onto a status code. Store failures and
// unexpected errors are logged here and reported with a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		h.writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.Is(err, domain.ErrPlayerExists):
		h.writeError(w, http.StatusConflict, domain.ErrPlayerExists.Error())
	case errors.Is(err, domain.ErrUnknownEdition):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.Error("store unavailable",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrStoreUnavailable.Error())
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError.Error())
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	topics := h.hub.Topics()
	subscribers := make(map[string]int, len(topics))
	for _, topic := range topics {
		subscribers[topic.String()] = h.hub.GetSubscriberCount(topic)
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
		"subscribers":       subscribers,
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyCheck reports whether the player store is reachable
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// RankPlayers returns the ranked players of one edition as a JSON list.
// An unknown edition has no players and yields an empty list.
func (h *Handler) RankPlayers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	window, err := domain.ParseTimeWindow(query.Get("window"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var ordering domain.Ordering
	if specs := splitList(query["sort"]); len(specs) > 0 {
		ordering, err = domain.ParseOrdering(specs)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}

	game := h.defaultEdition
	if raw := query.Get("game"); raw != "" {
		e, ok := domain.ParseEdition(raw)
		if !ok {
			h.writeJSON(w, http.StatusOK, []domain.PlayerRecord{})
			return
		}
		game = e
	}

	players, err := h.service.RankPlayers(r.Context(), domain.RankRequest{
		Edition:  game,
		Window:   window,
		Ordering: ordering,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, players)
}

// CreatePlayer applies the upsert contract to the request body
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodePlayer(w, r)
	if !ok {
		return
	}

	player, err := h.service.UpsertPlayer(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, player)
}

// UpdatePlayer replaces an existing player identified by the body's id
func (h *Handler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodePlayer(w, r)
	if !ok {
		return
	}

	player, err := h.service.UpdatePlayer(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, player)
}

// DeletePlayer removes a player named by path or by the id query parameter
func (h *Handler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "playerID")
	if id == "" {
		id = r.URL.Query().Get("id")
	}

	player, err := h.service.DeletePlayer(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, player)
}

// ListEditions describes every edition
func (h *Handler) ListEditions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Editions())
}

// GetEdition describes one edition's totals and column labels
func (h *Handler) GetEdition(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "edition")
	e, ok := domain.ParseEdition(raw)
	if !ok {
		h.writeError(w, http.StatusNotFound, "edition \""+raw+"\" not found")
		return
	}

	summary, err := h.service.Edition(e)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) decodePlayer(w http.ResponseWriter, r *http.Request) (domain.PlayerInput, bool) {
	var in domain.PlayerInput
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest.Error()+": malformed JSON body")
		return domain.PlayerInput{}, false
	}
	return in, true
}

// splitList flattens repeated and comma-separated query values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
