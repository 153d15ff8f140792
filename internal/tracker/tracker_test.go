package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unqworkflow/unqflow/internal/engine"
	"github.com/unqworkflow/unqflow/internal/history"
	"github.com/unqworkflow/unqflow/internal/state"
)

// fakeGenerator records calls and returns a canned result.
type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	result engine.GenerateResult
	err    error
	block  chan struct{} // if non-nil, GenerateVideo waits for it (or ctx)
}

func (f *fakeGenerator) GenerateVideo(ctx context.Context, req engine.GenerateRequest) (engine.GenerateResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return engine.GenerateResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memArchive collects saved records in memory.
type memArchive struct {
	mu   sync.Mutex
	recs []history.Record
}

func (a *memArchive) Save(rec history.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, rec)
	return nil
}

func (a *memArchive) records() []history.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]history.Record, len(a.recs))
	copy(out, a.recs)
	return out
}

func newTestTracker(t *testing.T, fake *fakeGenerator) (*Tracker, *state.Store, *memArchive) {
	t.Helper()
	store := state.New(nil)
	archive := &memArchive{}
	trk := New(store, archive, time.Hour, 5)
	trk.dial = func(baseURL string) Generator { return fake }
	return trk, store, archive
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		Topic:    "Go testing in practice",
		Duration: 300,
		Platform: state.PlatformYouTube,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSubmitValidation(t *testing.T) {
	trk, _, _ := newTestTracker(t, &fakeGenerator{})

	cases := []struct {
		name string
		req  SubmitRequest
	}{
		{"empty topic", SubmitRequest{Duration: 300, Platform: state.PlatformYouTube}},
		{"zero duration", SubmitRequest{Topic: "t", Platform: state.PlatformYouTube}},
		{"unknown platform", SubmitRequest{Topic: "t", Duration: 300, Platform: "tiktok"}},
	}
	for _, c := range cases {
		if _, err := trk.Submit(context.Background(), c.req); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

// TestSubmitDisconnected verifies a submission without engine connectivity
// queues the record, emits a "Backend Not Connected" notification, and makes
// no HTTP call.
func TestSubmitDisconnected(t *testing.T) {
	fake := &fakeGenerator{}
	trk, store, _ := newTestTracker(t, fake)

	gen, err := trk.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gen.Status != state.StatusQueued {
		t.Errorf("status = %q, want queued", gen.Status)
	}
	if gen.ChannelID != "default" {
		t.Errorf("channel = %q, want default", gen.ChannelID)
	}

	ns := store.Notifications()
	if len(ns) != 1 || ns[0].Title != "Backend Not Connected" {
		t.Fatalf("expected one Backend Not Connected notification, got %+v", ns)
	}
	if ns[0].Type != state.NotificationError {
		t.Errorf("notification type = %q", ns[0].Type)
	}
	if fake.callCount() != 0 {
		t.Errorf("engine called %d times while disconnected", fake.callCount())
	}
}

// TestSubmitConnectedSuccess verifies the connected path starts generating
// immediately and emits a "Generation Started" notification on acceptance.
func TestSubmitConnectedSuccess(t *testing.T) {
	fake := &fakeGenerator{result: engine.GenerateResult{Status: "success", GenerationTimeMinutes: 15}}
	trk, store, _ := newTestTracker(t, fake)
	store.SetBackendConnected(true)

	gen, err := trk.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gen.Status != state.StatusGenerating {
		t.Errorf("status = %q, want generating", gen.Status)
	}

	waitFor(t, func() bool {
		for _, n := range store.Notifications() {
			if n.Title == "Generation Started" {
				return true
			}
		}
		return false
	}, "no Generation Started notification")

	if fake.callCount() != 1 {
		t.Errorf("engine called %d times, want 1", fake.callCount())
	}
}

// TestSubmitConnectedFailure verifies a failed engine request marks the
// record failed with the message and archives the outcome.
func TestSubmitConnectedFailure(t *testing.T) {
	fake := &fakeGenerator{err: errors.New("connection reset")}
	trk, store, archive := newTestTracker(t, fake)
	store.SetBackendConnected(true)

	gen, err := trk.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, func() bool {
		g, ok := store.ContentGeneration(gen.ID)
		return ok && g.Status == state.StatusFailed
	}, "record never marked failed")

	g, _ := store.ContentGeneration(gen.ID)
	if g.ErrorMessage == "" {
		t.Error("failed record has no error message")
	}

	var foundNotif bool
	for _, n := range store.Notifications() {
		if n.Title == "Generation Failed" {
			foundNotif = true
		}
	}
	if !foundNotif {
		t.Error("no Generation Failed notification")
	}

	waitFor(t, func() bool { return len(archive.records()) == 1 }, "outcome not archived")
	if rec := archive.records()[0]; rec.Outcome != history.OutcomeFailed {
		t.Errorf("outcome = %q, want failed", rec.Outcome)
	}
}

// TestSubmitEngineRejection verifies a 2xx non-success engine response also
// fails the record, carrying the engine's message.
func TestSubmitEngineRejection(t *testing.T) {
	fake := &fakeGenerator{result: engine.GenerateResult{Status: "error", Message: "model not loaded"}}
	trk, store, _ := newTestTracker(t, fake)
	store.SetBackendConnected(true)

	gen, err := trk.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, func() bool {
		g, ok := store.ContentGeneration(gen.ID)
		return ok && g.Status == state.StatusFailed
	}, "record never marked failed")

	g, _ := store.ContentGeneration(gen.ID)
	if g.ErrorMessage != "model not loaded" {
		t.Errorf("error message = %q", g.ErrorMessage)
	}
}

// TestTickAdvancesGenerating verifies a tick moves generating records by a
// bounded positive increment and leaves everything else alone.
// TestEngineFailureAfterCompletion finishes a record while its engine call
// is still in flight; the late failure must not override the settled
// outcome with a failure notification or a second archive entry.
func TestEngineFailureAfterCompletion(t *testing.T) {
	fake := &fakeGenerator{err: errors.New("engine crashed"), block: make(chan struct{})}
	trk, store, archive := newTestTracker(t, fake)
	store.SetBackendConnected(true)

	gen, err := trk.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, ok := store.AdvanceProgress(gen.ID, 100); !ok {
		t.Fatal("could not complete the record")
	}
	close(fake.block)

	waitFor(t, func() bool {
		trk.mu.Lock()
		defer trk.mu.Unlock()
		return len(trk.inflight) == 0
	}, "dispatch did not finish")

	got, ok := store.ContentGeneration(gen.ID)
	if !ok {
		t.Fatal("record disappeared")
	}
	if got.Status != state.StatusCompleted {
		t.Errorf("status = %q, want %q", got.Status, state.StatusCompleted)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", got.ErrorMessage)
	}
	for _, n := range store.Notifications() {
		if n.Title == "Generation Failed" {
			t.Error("failure notification emitted for a completed record")
		}
	}
	for _, rec := range archive.records() {
		if rec.Outcome == history.OutcomeFailed {
			t.Error("completed record archived as failed")
		}
	}
}

func TestTickAdvancesGenerating(t *testing.T) {
	trk, store, _ := newTestTracker(t, &fakeGenerator{})

	mustAdd(t, store, state.ContentGeneration{
		ID: "g1", Topic: "a", Duration: 300, Status: state.StatusGenerating, Progress: 50, Platform: state.PlatformYouTube,
	})
	mustAdd(t, store, state.ContentGeneration{
		ID: "g2", Topic: "b", Duration: 300, Status: state.StatusPaused, Progress: 30, Platform: state.PlatformYouTube,
	})
	mustAdd(t, store, state.ContentGeneration{
		ID: "g3", Topic: "c", Duration: 300, Status: state.StatusQueued, Progress: 0, Platform: state.PlatformYouTube,
	})

	trk.Tick()

	g1, _ := store.ContentGeneration("g1")
	if g1.Progress < 51 || g1.Progress > 55 {
		t.Errorf("g1 progress = %d, want within (50, 55]", g1.Progress)
	}
	g2, _ := store.ContentGeneration("g2")
	if g2.Progress != 30 {
		t.Errorf("paused record advanced to %d", g2.Progress)
	}
	g3, _ := store.ContentGeneration("g3")
	if g3.Progress != 0 {
		t.Errorf("queued record advanced to %d", g3.Progress)
	}
}

// TestTickCompletion verifies a record near 100 completes on tick with a
// success notification and an archived outcome.
func TestTickCompletion(t *testing.T) {
	trk, store, archive := newTestTracker(t, &fakeGenerator{})

	mustAdd(t, store, state.ContentGeneration{
		ID: "g1", Topic: "almost done", Duration: 300, Status: state.StatusGenerating, Progress: 99, Platform: state.PlatformYouTube,
	})

	trk.Tick()

	g1, _ := store.ContentGeneration("g1")
	if g1.Status != state.StatusCompleted {
		t.Fatalf("status = %q, want completed", g1.Status)
	}
	if g1.Progress != 100 {
		t.Errorf("progress = %d, want 100", g1.Progress)
	}

	ns := store.Notifications()
	if len(ns) != 1 || ns[0].Title != "Content Generation Complete" {
		t.Fatalf("expected completion notification, got %+v", ns)
	}

	recs := archive.records()
	if len(recs) != 1 || recs[0].Outcome != history.OutcomeCompleted {
		t.Fatalf("expected one completed outcome, got %+v", recs)
	}

	// A completed record never ticks again.
	trk.Tick()
	if got := len(store.Notifications()); got != 1 {
		t.Errorf("completed record ticked again: %d notifications", got)
	}
}

// TestCancelAbortsInflight verifies cancelling removes the record, aborts
// the pending engine request, and archives a cancelled outcome without a
// failure notification racing in afterward.
func TestCancelAbortsInflight(t *testing.T) {
	fake := &fakeGenerator{block: make(chan struct{})}
	trk, store, archive := newTestTracker(t, fake)
	store.SetBackendConnected(true)

	gen, err := trk.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, func() bool { return fake.callCount() == 1 }, "engine request never started")

	if !trk.Cancel(gen.ID) {
		t.Fatal("Cancel returned false")
	}
	if _, ok := store.ContentGeneration(gen.ID); ok {
		t.Error("record still present after cancel")
	}

	waitFor(t, func() bool { return len(archive.records()) == 1 }, "cancelled outcome not archived")
	if rec := archive.records()[0]; rec.Outcome != history.OutcomeCancelled {
		t.Errorf("outcome = %q, want cancelled", rec.Outcome)
	}

	// Give the aborted dispatch a moment; it must not resurrect anything.
	time.Sleep(20 * time.Millisecond)
	if _, ok := store.ContentGeneration(gen.ID); ok {
		t.Error("cancelled record came back")
	}
	for _, n := range store.Notifications() {
		if n.Title == "Generation Failed" {
			t.Error("aborted request produced a failure notification")
		}
	}
}

func TestCancelUnknownID(t *testing.T) {
	trk, _, _ := newTestTracker(t, &fakeGenerator{})
	if trk.Cancel("absent") {
		t.Error("Cancel of unknown id returned true")
	}
}

func TestPauseResume(t *testing.T) {
	trk, store, _ := newTestTracker(t, &fakeGenerator{})
	mustAdd(t, store, state.ContentGeneration{
		ID: "g1", Topic: "a", Duration: 300, Status: state.StatusGenerating, Progress: 40, Platform: state.PlatformYouTube,
	})

	if err := trk.Pause("g1"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	g, _ := store.ContentGeneration("g1")
	if g.Status != state.StatusPaused {
		t.Errorf("status = %q, want paused", g.Status)
	}

	// Paused records do not tick.
	trk.Tick()
	g, _ = store.ContentGeneration("g1")
	if g.Progress != 40 {
		t.Errorf("paused record advanced to %d", g.Progress)
	}

	if err := trk.Resume("g1"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	g, _ = store.ContentGeneration("g1")
	if g.Status != state.StatusGenerating {
		t.Errorf("status = %q, want generating", g.Status)
	}
}

func TestPauseResumeUnknownID(t *testing.T) {
	trk, _, _ := newTestTracker(t, &fakeGenerator{})
	if err := trk.Pause("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Pause: got %v, want ErrNotFound", err)
	}
	if err := trk.Resume("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resume: got %v, want ErrNotFound", err)
	}
}

// TestPauseCompletedRejected verifies terminal records cannot be paused.
func TestPauseCompletedRejected(t *testing.T) {
	trk, store, _ := newTestTracker(t, &fakeGenerator{})
	mustAdd(t, store, state.ContentGeneration{
		ID: "g1", Topic: "a", Duration: 300, Status: state.StatusCompleted, Progress: 100, Platform: state.PlatformYouTube,
	})

	if err := trk.Pause("g1"); !errors.Is(err, state.ErrInvalidTransition) {
		t.Errorf("Pause completed: got %v, want ErrInvalidTransition", err)
	}
}

// TestRunShutdownCancelsInflight verifies tracker shutdown aborts pending
// engine requests.
func TestRunShutdownCancelsInflight(t *testing.T) {
	fake := &fakeGenerator{block: make(chan struct{})}
	trk, store, _ := newTestTracker(t, fake)
	store.SetBackendConnected(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		trk.Run(ctx)
		close(done)
	}()

	if _, err := trk.Submit(context.Background(), validRequest()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, func() bool { return fake.callCount() == 1 }, "engine request never started")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	trk.mu.Lock()
	remaining := len(trk.inflight)
	trk.mu.Unlock()
	if remaining != 0 {
		t.Errorf("%d in-flight requests left after shutdown", remaining)
	}
}

func mustAdd(t *testing.T, store *state.Store, gen state.ContentGeneration) {
	t.Helper()
	if err := store.AddContentGeneration(gen); err != nil {
		t.Fatalf("AddContentGeneration(%s): %v", gen.ID, err)
	}
}
