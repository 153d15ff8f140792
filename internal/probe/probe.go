// Package probe validates that a user-supplied AI Engine base URL is live
// before dependent actions are allowed.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/unqworkflow/unqflow/internal/engine"
	"github.com/unqworkflow/unqflow/internal/state"
)

// Store is the subset of the state store the checker mutates.
type Store interface {
	SetBackendURL(url string)
	SetBackendConnected(connected bool)
	AddNotification(n state.Notification)
}

// HealthChecker probes an engine endpoint.
type HealthChecker interface {
	Health(ctx context.Context) (engine.HealthInfo, error)
}

// Checker runs single-attempt connectivity probes. No retry or backoff: one
// attempt per explicit user action or per startup check of a stored URL.
type Checker struct {
	store  Store
	dial   func(baseURL string) HealthChecker
	logger *slog.Logger
}

// NewChecker creates a Checker backed by the real engine client.
func NewChecker(store Store) *Checker {
	return &Checker{
		store:  store,
		dial:   func(baseURL string) HealthChecker { return engine.New(baseURL) },
		logger: slog.Default(),
	}
}

// Check probes rawURL and flips the store's connected flag accordingly.
// The URL is recorded before the probe completes; the flag only changes on
// the probe's outcome. Exactly one notification is emitted per probe.
func (c *Checker) Check(ctx context.Context, rawURL string) bool {
	url := strings.TrimRight(rawURL, "/")
	c.store.SetBackendURL(url)

	info, err := c.dial(url).Health(ctx)
	if err != nil {
		c.logger.Warn("engine probe failed", "url", url, "error", err)
		c.store.SetBackendConnected(false)
		c.store.AddNotification(state.Notification{
			ID:      uuid.New().String(),
			Type:    state.NotificationError,
			Title:   "Connection Failed",
			Message: "Could not connect to the AI Engine. Please check the URL and try again.",
		})
		return false
	}

	c.store.SetBackendConnected(true)
	c.store.AddNotification(state.Notification{
		ID:      uuid.New().String(),
		Type:    state.NotificationSuccess,
		Title:   "Connection Successful",
		Message: fmt.Sprintf("Connected to AI Engine using %s device", info.Device),
	})
	return true
}
