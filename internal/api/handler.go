// Package api exposes the dashboard state over a bearer-authenticated HTTP
// API and an MCP server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unqworkflow/unqflow/internal/history"
	"github.com/unqworkflow/unqflow/internal/state"
	"github.com/unqworkflow/unqflow/internal/tracker"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ConnectivityChecker probes an engine URL and flips the store's connected
// flag.
type ConnectivityChecker interface {
	Check(ctx context.Context, url string) bool
}

// Deps holds the handler's collaborators.
type Deps struct {
	Store   *state.Store
	Tracker *tracker.Tracker
	Probe   ConnectivityChecker
	History *history.Archive // optional; if nil, /history returns empty lists
	Token   string
}

// NewHandler returns the management API handler. Everything except /health
// requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/state", handleGetState(deps))
		r.Get("/metrics", handleGetMetrics(deps))
		r.Put("/metrics", handlePutMetrics(deps))
		r.Put("/preferences", handlePutPreferences(deps))

		r.Get("/generations", handleListGenerations(deps))
		r.Post("/generations", handleSubmitGeneration(deps))
		r.Get("/generations/{id}", handleGetGeneration(deps))
		r.Post("/generations/{id}/pause", handlePauseGeneration(deps))
		r.Post("/generations/{id}/resume", handleResumeGeneration(deps))
		r.Delete("/generations/{id}", handleCancelGeneration(deps))

		r.Get("/notifications", handleListNotifications(deps))
		r.Post("/notifications/{id}/read", handleReadNotification(deps))
		r.Delete("/notifications", handleClearNotifications(deps))

		r.Post("/connect", handleConnect(deps))

		r.Get("/channels", handleListChannels(deps))
		r.Get("/scheduled", handleListScheduled(deps))
		r.Get("/apikeys", handleListAPIKeys(deps))
		r.Get("/history", handleListHistory(deps))
		r.Delete("/history", handlePurgeHistory(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// stateView is the aggregate snapshot returned by GET /state.
type stateView struct {
	User             *state.User             `json:"user"`
	Authenticated    bool                    `json:"authenticated"`
	Theme            state.Theme             `json:"theme"`
	SidebarCollapsed bool                    `json:"sidebarCollapsed"`
	BackendURL       string                  `json:"backendUrl"`
	BackendConnected bool                    `json:"backendConnected"`
	Metrics          *state.DashboardMetrics `json:"metrics"`
	Generations      int                     `json:"generations"`
	Notifications    int                     `json:"notifications"`
	UnreadCount      int                     `json:"unreadCount"`
}

func handleGetState(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := stateView{
			Authenticated:    deps.Store.Authenticated(),
			Theme:            deps.Store.Theme(),
			SidebarCollapsed: deps.Store.SidebarCollapsed(),
			BackendURL:       deps.Store.BackendURL(),
			BackendConnected: deps.Store.BackendConnected(),
			Generations:      len(deps.Store.ContentGenerations()),
			Notifications:    len(deps.Store.Notifications()),
			UnreadCount:      deps.Store.UnreadCount(),
		}
		if u, ok := deps.Store.User(); ok {
			view.User = &u
		}
		if m, ok := deps.Store.DashboardMetrics(); ok {
			view.Metrics = &m
		}
		writeJSON(w, view)
	}
}

func handleGetMetrics(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := deps.Store.DashboardMetrics()
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "no metrics snapshot available")
			return
		}
		writeJSON(w, m)
	}
}

func handlePutMetrics(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var m state.DashboardMetrics
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		deps.Store.SetDashboardMetrics(m)
		writeJSON(w, map[string]string{"status": "updated"})
	}
}

// preferencesRequest carries optional preference updates; absent fields are
// left untouched.
type preferencesRequest struct {
	Theme            *state.Theme `json:"theme"`
	SidebarCollapsed *bool        `json:"sidebarCollapsed"`
	User             *state.User  `json:"user"`
	ClearUser        bool         `json:"clearUser"`
}

func handlePutPreferences(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req preferencesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Theme != nil {
			if err := deps.Store.SetTheme(*req.Theme); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
		}
		if req.SidebarCollapsed != nil {
			deps.Store.SetSidebarCollapsed(*req.SidebarCollapsed)
		}
		if req.ClearUser {
			deps.Store.SetUser(nil)
		} else if req.User != nil {
			deps.Store.SetUser(req.User)
		}
		writeJSON(w, map[string]string{"status": "updated"})
	}
}

func handleListGenerations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gens := deps.Store.ContentGenerations()

		if statusFilter := r.URL.Query().Get("status"); statusFilter != "" {
			filtered := gens[:0]
			for _, g := range gens {
				if string(g.Status) == statusFilter {
					filtered = append(filtered, g)
				}
			}
			gens = filtered
		}
		if gens == nil {
			gens = []state.ContentGeneration{}
		}
		writeJSON(w, gens)
	}
}

// submitRequest is the JSON body for POST /generations.
type submitRequest struct {
	Topic           string         `json:"topic"`
	Duration        int            `json:"duration"`
	ContentType     string         `json:"contentType"`
	TargetAudience  string         `json:"targetAudience"`
	ChannelID       string         `json:"channelId"`
	Platform        state.Platform `json:"platform"`
	Voice           string         `json:"voice"`
	SEOOptimization bool           `json:"seoOptimization"`
	Tags            []string       `json:"tags"`
}

func handleSubmitGeneration(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		gen, err := deps.Tracker.Submit(r.Context(), tracker.SubmitRequest{
			Topic:           req.Topic,
			Duration:        req.Duration,
			ContentType:     req.ContentType,
			TargetAudience:  req.TargetAudience,
			ChannelID:       req.ChannelID,
			Platform:        req.Platform,
			Voice:           req.Voice,
			SEOOptimization: req.SEOOptimization,
			Tags:            req.Tags,
		})
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(gen)
	}
}

func handleGetGeneration(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gen, ok := deps.Store.ContentGeneration(chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "generation not found")
			return
		}
		writeJSON(w, gen)
	}
}

func handlePauseGeneration(deps Deps) http.HandlerFunc {
	return transitionHandler(deps, deps.Tracker.Pause, "paused")
}

func handleResumeGeneration(deps Deps) http.HandlerFunc {
	return transitionHandler(deps, deps.Tracker.Resume, "resumed")
}

func transitionHandler(deps Deps, op func(id string) error, verb string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := op(id)
		if errors.Is(err, tracker.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "generation not found")
			return
		}
		if errors.Is(err, state.ErrInvalidTransition) {
			httpError(w, http.StatusConflict, "invalid_transition", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, map[string]string{"status": verb})
	}
}

func handleCancelGeneration(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Tracker.Cancel(chi.URLParam(r, "id")) {
			httpError(w, http.StatusNotFound, "not_found", "generation not found")
			return
		}
		writeJSON(w, map[string]string{"status": "cancelled"})
	}
}

func handleListNotifications(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := deps.Store.Notifications()
		if r.URL.Query().Get("unread") == "true" {
			unread := ns[:0]
			for _, n := range ns {
				if !n.Read {
					unread = append(unread, n)
				}
			}
			ns = unread
		}
		if ns == nil {
			ns = []state.Notification{}
		}
		writeJSON(w, ns)
	}
}

func handleReadNotification(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Store.MarkNotificationRead(chi.URLParam(r, "id"))
		writeJSON(w, map[string]string{"status": "read"})
	}
}

func handleClearNotifications(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Store.ClearNotifications()
		writeJSON(w, map[string]string{"status": "cleared"})
	}
}

// connectRequest is the JSON body for POST /connect.
type connectRequest struct {
	URL string `json:"url"`
}

func handleConnect(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req connectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "url is required")
			return
		}
		connected := deps.Probe.Check(r.Context(), req.URL)
		writeJSON(w, map[string]any{
			"url":       deps.Store.BackendURL(),
			"connected": connected,
		})
	}
}

func handleListChannels(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channels := deps.Store.Channels()
		if channels == nil {
			channels = []state.Channel{}
		}
		writeJSON(w, channels)
	}
}

func handleListScheduled(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduled := deps.Store.ScheduledContent()
		if scheduled == nil {
			scheduled = []state.ScheduledContent{}
		}
		writeJSON(w, scheduled)
	}
}

func handleListAPIKeys(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := deps.Store.APIKeys()
		if keys == nil {
			keys = []state.APIKey{}
		}
		writeJSON(w, keys)
	}
}

// historyView is one archived outcome as returned by GET /history.
type historyView struct {
	ID           string `json:"id"`
	GenerationID string `json:"generationId"`
	Topic        string `json:"topic"`
	Platform     string `json:"platform"`
	Outcome      string `json:"outcome"`
	Progress     int    `json:"progress"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt"`
	FinishedAt   string `json:"finishedAt"`
}

func handleListHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views := []historyView{}
		if deps.History != nil {
			limit := parseIntParam(r, "limit", 20, 100)
			offset := parseIntParam(r, "offset", 0, 0)
			records, err := deps.History.List(limit, offset)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to list history: %v", err)
				return
			}
			for _, rec := range records {
				views = append(views, historyView{
					ID:           rec.ID,
					GenerationID: rec.GenerationID,
					Topic:        rec.Topic,
					Platform:     rec.Platform,
					Outcome:      rec.Outcome,
					Progress:     rec.Progress,
					ErrorMessage: rec.ErrorMessage,
					CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
					FinishedAt:   rec.FinishedAt.Format(time.RFC3339),
				})
			}
		}
		writeJSON(w, views)
	}
}

func handlePurgeHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.History != nil {
			if err := deps.History.Purge(); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to purge history: %v", err)
				return
			}
		}
		writeJSON(w, map[string]string{"status": "purged"})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
