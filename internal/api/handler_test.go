package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/unqworkflow/unqflow/internal/state"
	"github.com/unqworkflow/unqflow/internal/tracker"
)

const testToken = "test-token"

// fakeProbe satisfies ConnectivityChecker and mirrors the real checker's
// store side effects.
type fakeProbe struct {
	store   *state.Store
	healthy bool
	calls   int
}

func (f *fakeProbe) Check(ctx context.Context, url string) bool {
	f.calls++
	f.store.SetBackendURL(url)
	f.store.SetBackendConnected(f.healthy)
	return f.healthy
}

type testEnv struct {
	handler http.Handler
	store   *state.Store
	probe   *fakeProbe
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := state.New(nil)
	trk := tracker.New(store, nil, time.Hour, 5)
	probe := &fakeProbe{store: store, healthy: true}
	handler := NewHandler(Deps{
		Store:   store,
		Tracker: trk,
		Probe:   probe,
		Token:   testToken,
	})
	return &testEnv{handler: handler, store: store, probe: probe}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealthOpen(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health without token: status %d", rec.Code)
	}
}

// TestAuthRequired verifies every management route rejects missing and wrong
// tokens with the JSON error envelope.
func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/state", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", rec.Code)
	}

	req = httptest.NewRequest("GET", "/state", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status %d, want 401", rec.Code)
	}

	var errResp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	decodeBody(t, rec, &errResp)
	if errResp.Error.Type != "authentication_error" {
		t.Errorf("error type = %q", errResp.Error.Type)
	}
}

func TestGetState(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetUser(&state.User{ID: "u1", Email: "a@b.c", Name: "A"})
	env.store.SetDashboardMetrics(state.MockMetrics())

	rec := env.request(t, "GET", "/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var view stateView
	decodeBody(t, rec, &view)
	if !view.Authenticated || view.User == nil || view.User.ID != "u1" {
		t.Errorf("user not reflected: %+v", view)
	}
	if view.Metrics == nil || view.Metrics.TotalChannels != 12 {
		t.Errorf("metrics not reflected: %+v", view.Metrics)
	}
	if view.Theme != state.ThemeSystem {
		t.Errorf("theme = %q", view.Theme)
	}
}

func TestMetricsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.request(t, "GET", "/metrics", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics before seed: status %d, want 404", rec.Code)
	}

	m := state.MockMetrics()
	if rec := env.request(t, "PUT", "/metrics", m); rec.Code != http.StatusOK {
		t.Fatalf("PUT /metrics: status %d", rec.Code)
	}

	rec := env.request(t, "GET", "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics: status %d", rec.Code)
	}
	var got state.DashboardMetrics
	decodeBody(t, rec, &got)
	if got != m {
		t.Errorf("metrics round-trip mismatch: %+v", got)
	}
}

func TestPutPreferences(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "PUT", "/preferences", map[string]any{
		"theme":            "dark",
		"sidebarCollapsed": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if env.store.Theme() != state.ThemeDark {
		t.Errorf("theme = %q", env.store.Theme())
	}
	if !env.store.SidebarCollapsed() {
		t.Error("sidebarCollapsed not applied")
	}

	if rec := env.request(t, "PUT", "/preferences", map[string]any{"theme": "sepia"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid theme: status %d, want 400", rec.Code)
	}
}

func TestPreferencesClearUser(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetUser(&state.User{ID: "u1", Email: "a@b.c", Name: "A"})

	rec := env.request(t, "PUT", "/preferences", map[string]any{"clearUser": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if env.store.Authenticated() {
		t.Error("user not cleared")
	}
}

// TestSubmitGeneration verifies the disconnected submission path: 202, a
// queued record, and the Backend Not Connected notification.
func TestSubmitGeneration(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/generations", map[string]any{
		"topic":    "Go error handling",
		"duration": 300,
		"platform": "youtube",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d, want 202", rec.Code)
	}

	var gen state.ContentGeneration
	decodeBody(t, rec, &gen)
	if gen.ID == "" {
		t.Fatal("no id assigned")
	}
	if gen.Status != state.StatusQueued {
		t.Errorf("status = %q, want queued while disconnected", gen.Status)
	}

	ns := env.store.Notifications()
	if len(ns) != 1 || ns[0].Title != "Backend Not Connected" {
		t.Errorf("notifications = %+v", ns)
	}
}

func TestSubmitGenerationInvalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/generations", map[string]any{"duration": 300, "platform": "youtube"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing topic: status %d, want 400", rec.Code)
	}
}

func TestListGenerationsFilter(t *testing.T) {
	env := newTestEnv(t)
	mustAdd(t, env.store, "g1", state.StatusGenerating, 40)
	mustAdd(t, env.store, "g2", state.StatusCompleted, 100)

	rec := env.request(t, "GET", "/generations?status=completed", nil)
	var gens []state.ContentGeneration
	decodeBody(t, rec, &gens)
	if len(gens) != 1 || gens[0].ID != "g2" {
		t.Errorf("filtered list = %+v", gens)
	}

	rec = env.request(t, "GET", "/generations", nil)
	decodeBody(t, rec, &gens)
	if len(gens) != 2 {
		t.Errorf("unfiltered list has %d records", len(gens))
	}
}

func TestGetGeneration(t *testing.T) {
	env := newTestEnv(t)
	mustAdd(t, env.store, "g1", state.StatusGenerating, 40)

	rec := env.request(t, "GET", "/generations/g1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var gen state.ContentGeneration
	decodeBody(t, rec, &gen)
	if gen.ID != "g1" {
		t.Errorf("id = %q", gen.ID)
	}

	if rec := env.request(t, "GET", "/generations/absent", nil); rec.Code != http.StatusNotFound {
		t.Errorf("absent id: status %d, want 404", rec.Code)
	}
}

func TestPauseResumeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	mustAdd(t, env.store, "g1", state.StatusGenerating, 40)

	if rec := env.request(t, "POST", "/generations/g1/pause", nil); rec.Code != http.StatusOK {
		t.Fatalf("pause: status %d", rec.Code)
	}
	if gen, _ := env.store.ContentGeneration("g1"); gen.Status != state.StatusPaused {
		t.Errorf("status = %q after pause", gen.Status)
	}

	if rec := env.request(t, "POST", "/generations/g1/resume", nil); rec.Code != http.StatusOK {
		t.Fatalf("resume: status %d", rec.Code)
	}
	if gen, _ := env.store.ContentGeneration("g1"); gen.Status != state.StatusGenerating {
		t.Errorf("status = %q after resume", gen.Status)
	}

	if rec := env.request(t, "POST", "/generations/absent/pause", nil); rec.Code != http.StatusNotFound {
		t.Errorf("pause absent: status %d, want 404", rec.Code)
	}
}

// TestPauseCompletedConflict verifies an invalid lifecycle transition maps
// to 409.
func TestPauseCompletedConflict(t *testing.T) {
	env := newTestEnv(t)
	mustAdd(t, env.store, "g1", state.StatusCompleted, 100)

	rec := env.request(t, "POST", "/generations/g1/pause", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409", rec.Code)
	}
	var errResp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	decodeBody(t, rec, &errResp)
	if errResp.Error.Type != "invalid_transition" {
		t.Errorf("error type = %q", errResp.Error.Type)
	}
}

func TestCancelGeneration(t *testing.T) {
	env := newTestEnv(t)
	mustAdd(t, env.store, "g1", state.StatusGenerating, 40)

	if rec := env.request(t, "DELETE", "/generations/g1", nil); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if _, ok := env.store.ContentGeneration("g1"); ok {
		t.Error("record still present")
	}
	if rec := env.request(t, "DELETE", "/generations/g1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", rec.Code)
	}
}

func TestNotificationsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddNotification(state.Notification{ID: "n1", Type: state.NotificationInfo, Title: "first"})
	env.store.AddNotification(state.Notification{ID: "n2", Type: state.NotificationError, Title: "second"})
	env.store.MarkNotificationRead("n1")

	rec := env.request(t, "GET", "/notifications", nil)
	var ns []state.Notification
	decodeBody(t, rec, &ns)
	if len(ns) != 2 || ns[0].ID != "n2" {
		t.Errorf("list = %+v", ns)
	}

	rec = env.request(t, "GET", "/notifications?unread=true", nil)
	decodeBody(t, rec, &ns)
	if len(ns) != 1 || ns[0].ID != "n2" {
		t.Errorf("unread list = %+v", ns)
	}

	if rec := env.request(t, "POST", "/notifications/n2/read", nil); rec.Code != http.StatusOK {
		t.Fatalf("mark read: status %d", rec.Code)
	}
	if env.store.UnreadCount() != 0 {
		t.Errorf("unread count = %d", env.store.UnreadCount())
	}

	if rec := env.request(t, "DELETE", "/notifications", nil); rec.Code != http.StatusOK {
		t.Fatalf("clear: status %d", rec.Code)
	}
	rec = env.request(t, "GET", "/notifications", nil)
	decodeBody(t, rec, &ns)
	if len(ns) != 0 {
		t.Errorf("%d notifications after clear", len(ns))
	}
}

func TestConnect(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/connect", map[string]string{"url": "http://localhost:8000/"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var result struct {
		URL       string `json:"url"`
		Connected bool   `json:"connected"`
	}
	decodeBody(t, rec, &result)
	if !result.Connected {
		t.Error("connected = false")
	}
	if env.probe.calls != 1 {
		t.Errorf("probe called %d times", env.probe.calls)
	}

	if rec := env.request(t, "POST", "/connect", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty url: status %d, want 400", rec.Code)
	}
}

func TestConnectFailure(t *testing.T) {
	env := newTestEnv(t)
	env.probe.healthy = false

	rec := env.request(t, "POST", "/connect", map[string]string{"url": "http://localhost:9999"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var result struct {
		Connected bool `json:"connected"`
	}
	decodeBody(t, rec, &result)
	if result.Connected {
		t.Error("connected = true for failed probe")
	}
}

func TestListAPIKeys(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "GET", "/apikeys", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var keys []state.APIKey
	decodeBody(t, rec, &keys)
	if len(keys) != 0 {
		t.Fatalf("expected empty list, got %d keys", len(keys))
	}

	env.store.SetAPIKeys([]state.APIKey{
		{ID: "key-1", Name: "OpenAI Production", Service: "openai", KeyPreview: "sk-...abc1", Status: "active"},
		{ID: "key-2", Name: "ElevenLabs Voice", Service: "elevenlabs", KeyPreview: "el-...xyz9", Status: "inactive"},
	})

	rec = env.request(t, "GET", "/apikeys", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	decodeBody(t, rec, &keys)
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0].Service != "openai" || keys[1].Status != "inactive" {
		t.Errorf("unexpected keys: %+v", keys)
	}
}

func TestHistoryWithoutArchive(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "GET", "/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var views []historyView
	decodeBody(t, rec, &views)
	if len(views) != 0 {
		t.Errorf("history without archive = %+v", views)
	}

	if rec := env.request(t, "DELETE", "/history", nil); rec.Code != http.StatusOK {
		t.Errorf("purge without archive: status %d", rec.Code)
	}
}

func mustAdd(t *testing.T, store *state.Store, id string, status state.Status, progress int) {
	t.Helper()
	gen := state.ContentGeneration{
		ID: id, Topic: "topic " + id, Duration: 300, Status: status, Progress: progress, Platform: state.PlatformYouTube,
	}
	if status == state.StatusFailed {
		gen.ErrorMessage = "boom"
	}
	if err := store.AddContentGeneration(gen); err != nil {
		t.Fatalf("AddContentGeneration(%s): %v", id, err)
	}
}
