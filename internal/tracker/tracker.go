// Package tracker owns the content-generation lifecycle: progress ticks,
// status transitions, and dispatch of generation requests to the AI Engine.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unqworkflow/unqflow/internal/engine"
	"github.com/unqworkflow/unqflow/internal/history"
	"github.com/unqworkflow/unqflow/internal/state"
)

// ErrNotFound is returned for operations on unknown generation ids.
var ErrNotFound = errors.New("generation not found")

// Store is the subset of the state store the tracker mutates.
type Store interface {
	AddContentGeneration(gen state.ContentGeneration) error
	UpdateContentGeneration(id string, patch state.GenerationPatch) error
	RemoveContentGeneration(id string) bool
	ContentGeneration(id string) (state.ContentGeneration, bool)
	ContentGenerations() []state.ContentGeneration
	AdvanceProgress(id string, delta int) (state.ContentGeneration, bool)
	AddNotification(n state.Notification)
	BackendURL() string
	BackendConnected() bool
}

// Generator submits generation requests to an engine endpoint.
type Generator interface {
	GenerateVideo(ctx context.Context, req engine.GenerateRequest) (engine.GenerateResult, error)
}

// Archiver records terminal generation outcomes.
type Archiver interface {
	Save(rec history.Record) error
}

// Tracker drives in-flight generation records: a recurring tick advances
// progress, and submissions optionally dispatch one HTTP request to the AI
// Engine, bound to the record's lifetime via a cancel function.
type Tracker struct {
	store    Store
	archive  Archiver // optional; nil disables outcome archival
	dial     func(baseURL string) Generator
	interval time.Duration
	maxStep  int
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// New creates a Tracker. If tickInterval <= 0 it defaults to 2s; if
// maxStep <= 0 progress advances by up to 5 per tick.
func New(store Store, archive Archiver, tickInterval time.Duration, maxStep int) *Tracker {
	if tickInterval <= 0 {
		tickInterval = 2 * time.Second
	}
	if maxStep <= 0 {
		maxStep = 5
	}
	return &Tracker{
		store:    store,
		archive:  archive,
		dial:     func(baseURL string) Generator { return engine.New(baseURL) },
		interval: tickInterval,
		maxStep:  maxStep,
		logger:   slog.Default(),
		inflight: make(map[string]context.CancelFunc),
	}
}

// Run ticks until ctx is cancelled, then aborts any in-flight engine
// requests.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.cancelAll()
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick advances every generating record by a bounded random increment.
// Records reaching 100% complete and emit a notification.
func (t *Tracker) Tick() {
	for _, gen := range t.store.ContentGenerations() {
		if gen.Status != state.StatusGenerating || gen.Progress >= 100 {
			continue
		}
		updated, ok := t.store.AdvanceProgress(gen.ID, 1+rand.IntN(t.maxStep))
		if ok && updated.Status == state.StatusCompleted {
			t.store.AddNotification(state.Notification{
				ID:        uuid.New().String(),
				Type:      state.NotificationSuccess,
				Title:     "Content Generation Complete",
				Message:   fmt.Sprintf("Your video %q is ready for review", updated.Topic),
				ActionURL: "/content-creation",
			})
			t.archiveOutcome(updated, history.OutcomeCompleted)
		}
	}
}

// SubmitRequest describes a new generation to create.
type SubmitRequest struct {
	Topic           string
	Duration        int // seconds
	ContentType     string
	TargetAudience  string
	ChannelID       string
	Platform        state.Platform
	Voice           string
	SEOOptimization bool
	Tags            []string
}

// Submit creates a generation record and, when the engine is connected,
// dispatches one request to it. Without connectivity the record stays
// queued, a failure notification is emitted, and no HTTP call is made.
func (t *Tracker) Submit(ctx context.Context, req SubmitRequest) (state.ContentGeneration, error) {
	if req.Topic == "" {
		return state.ContentGeneration{}, errors.New("topic is required")
	}
	if req.Duration <= 0 {
		return state.ContentGeneration{}, errors.New("duration must be positive")
	}
	if !req.Platform.Valid() {
		return state.ContentGeneration{}, fmt.Errorf("unknown platform %q", req.Platform)
	}
	if req.ChannelID == "" {
		req.ChannelID = "default"
	}

	connected := t.store.BackendConnected()
	status := state.StatusQueued
	if connected {
		// Submission from the creation flow skips "queued" when the
		// engine can start immediately.
		status = state.StatusGenerating
	}

	now := time.Now().UTC()
	est := now.Add(30 * time.Minute)
	gen := state.ContentGeneration{
		ID:                  uuid.New().String(),
		Topic:               req.Topic,
		Duration:            req.Duration,
		ContentType:         req.ContentType,
		TargetAudience:      req.TargetAudience,
		Status:              status,
		Progress:            0,
		ChannelID:           req.ChannelID,
		Platform:            req.Platform,
		CreatedAt:           now,
		EstimatedCompletion: &est,
	}
	if err := t.store.AddContentGeneration(gen); err != nil {
		return state.ContentGeneration{}, err
	}

	if !connected {
		t.store.AddNotification(state.Notification{
			ID:      uuid.New().String(),
			Type:    state.NotificationError,
			Title:   "Backend Not Connected",
			Message: "Connect to the AI Engine before generating videos. The request was queued locally.",
		})
		return gen, nil
	}

	wireReq := engine.GenerateRequest{
		Prompt:          req.Topic,
		Duration:        req.Duration,
		ContentType:     req.ContentType,
		TargetAudience:  req.TargetAudience,
		Voice:           req.Voice,
		SEOOptimization: req.SEOOptimization,
		Tags:            req.Tags,
	}

	// The request outlives the caller's context (e.g. an HTTP handler) but
	// is cancelled when the record is removed or the tracker shuts down.
	genCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.mu.Lock()
	t.inflight[gen.ID] = cancel
	t.mu.Unlock()

	go t.dispatch(genCtx, gen, wireReq)
	return gen, nil
}

func (t *Tracker) dispatch(ctx context.Context, gen state.ContentGeneration, wireReq engine.GenerateRequest) {
	defer func() {
		t.mu.Lock()
		if cancel, ok := t.inflight[gen.ID]; ok {
			delete(t.inflight, gen.ID)
			cancel()
		}
		t.mu.Unlock()
	}()

	client := t.dial(t.store.BackendURL())
	result, err := client.GenerateVideo(ctx, wireReq)
	if err != nil {
		if ctx.Err() != nil {
			// Record was cancelled (or the tracker shut down) while the
			// request was in flight; nothing left to update.
			return
		}
		t.fail(gen.ID, fmt.Sprintf("generation request failed: %v", err))
		return
	}
	if !result.Succeeded() {
		msg := result.Message
		if msg == "" {
			msg = "the AI Engine rejected the generation request"
		}
		t.fail(gen.ID, msg)
		return
	}

	msg := fmt.Sprintf("The AI Engine accepted %q", gen.Topic)
	if result.GenerationTimeMinutes > 0 {
		msg = fmt.Sprintf("%s (estimated %.0f minutes)", msg, result.GenerationTimeMinutes)
	}
	t.store.AddNotification(state.Notification{
		ID:        uuid.New().String(),
		Type:      state.NotificationSuccess,
		Title:     "Generation Started",
		Message:   msg,
		ActionURL: "/video-generation",
	})
}

// fail marks the record failed with msg and emits a failure notification.
// A record that already reached a terminal state (e.g. a tick completed it
// while the engine call was returning) keeps its settled outcome.
func (t *Tracker) fail(id, msg string) {
	status := state.StatusFailed
	if err := t.store.UpdateContentGeneration(id, state.GenerationPatch{
		Status:       &status,
		ErrorMessage: &msg,
	}); err != nil {
		t.logger.Warn("could not mark generation failed", "id", id, "error", err)
		return
	}
	t.store.AddNotification(state.Notification{
		ID:      uuid.New().String(),
		Type:    state.NotificationError,
		Title:   "Generation Failed",
		Message: msg,
	})
	if gen, ok := t.store.ContentGeneration(id); ok {
		t.archiveOutcome(gen, history.OutcomeFailed)
	}
}

// Pause suspends a generating record.
func (t *Tracker) Pause(id string) error {
	if _, ok := t.store.ContentGeneration(id); !ok {
		return ErrNotFound
	}
	status := state.StatusPaused
	return t.store.UpdateContentGeneration(id, state.GenerationPatch{Status: &status})
}

// Resume restarts a paused record.
func (t *Tracker) Resume(id string) error {
	if _, ok := t.store.ContentGeneration(id); !ok {
		return ErrNotFound
	}
	status := state.StatusGenerating
	return t.store.UpdateContentGeneration(id, state.GenerationPatch{Status: &status})
}

// Cancel removes a record, aborting its in-flight engine request if any.
// Cancellation is terminal by deletion; the outcome is archived before the
// record disappears.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	if cancel, ok := t.inflight[id]; ok {
		delete(t.inflight, id)
		cancel()
	}
	t.mu.Unlock()

	gen, ok := t.store.ContentGeneration(id)
	if !ok {
		return false
	}
	if !t.store.RemoveContentGeneration(id) {
		return false
	}
	t.archiveOutcome(gen, history.OutcomeCancelled)
	return true
}

func (t *Tracker) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, cancel := range t.inflight {
		cancel()
		delete(t.inflight, id)
	}
}

func (t *Tracker) archiveOutcome(gen state.ContentGeneration, outcome string) {
	if t.archive == nil {
		return
	}
	rec := history.Record{
		ID:           uuid.New().String(),
		GenerationID: gen.ID,
		Topic:        gen.Topic,
		Platform:     string(gen.Platform),
		ContentType:  gen.ContentType,
		Duration:     gen.Duration,
		Outcome:      outcome,
		Progress:     gen.Progress,
		ErrorMessage: gen.ErrorMessage,
		CreatedAt:    gen.CreatedAt,
		FinishedAt:   time.Now().UTC(),
	}
	if err := t.archive.Save(rec); err != nil {
		t.logger.Warn("archiving generation outcome failed", "generation_id", gen.ID, "error", err)
	}
}
