package state

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrDuplicateID is returned when a generation with the same identifier
// already exists in the store.
var ErrDuplicateID = errors.New("duplicate generation id")

// ErrInvalidTransition is returned when a patch would move a generation
// backward through its lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the single source of truth for session, UI, and domain state.
// All mutations go through its methods and are serialized by one mutex, so
// a progress tick and a concurrent user action can never interleave within
// a mutation. Construct a fresh instance per composition root (or per
// test); there is no package-level singleton.
type Store struct {
	mu        sync.Mutex
	persister Persister
	logger    *slog.Logger

	user             *User
	authenticated    bool
	theme            Theme
	sidebarCollapsed bool

	metrics       *DashboardMetrics
	generations   []ContentGeneration
	scheduled     []ScheduledContent
	notifications []Notification
	channels      []Channel
	apiKeys       []APIKey

	loading map[LoadingKey]bool

	backendURL       string
	backendConnected bool
}

// New creates a Store, loading the persisted preference snapshot before any
// other initialization. persister may be nil, in which case nothing is
// persisted (used by tests).
func New(persister Persister) *Store {
	s := &Store{
		persister: persister,
		logger:    slog.Default(),
		theme:     ThemeSystem,
		loading:   make(map[LoadingKey]bool),
	}
	if persister != nil {
		snap, ok, err := persister.Load()
		if err != nil {
			s.logger.Warn("could not load persisted state, starting fresh", "error", err)
		} else if ok {
			s.user = snap.User
			s.authenticated = snap.Authenticated
			if snap.Theme.Valid() {
				s.theme = snap.Theme
			}
			s.sidebarCollapsed = snap.SidebarCollapsed
		}
	}
	return s
}

// persistLocked writes the preference snapshot. Callers must hold s.mu.
// Persistence failures are logged, never surfaced: the in-memory state is
// authoritative.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	snap := Snapshot{
		User:             s.user,
		Authenticated:    s.authenticated,
		Theme:            s.theme,
		SidebarCollapsed: s.sidebarCollapsed,
	}
	if err := s.persister.Save(snap); err != nil {
		s.logger.Warn("persisting preference snapshot failed", "error", err)
	}
}

// --- User & preferences ---

// SetUser replaces the session identity. The authenticated flag follows
// presence of a user.
func (s *Store) SetUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.authenticated = u != nil
	s.persistLocked()
}

func (s *Store) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// SetTheme sets the UI theme. Unknown values are rejected.
func (s *Store) SetTheme(t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("unknown theme %q", t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theme = t
	s.persistLocked()
	return nil
}

func (s *Store) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *Store) SetSidebarCollapsed(collapsed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebarCollapsed = collapsed
	s.persistLocked()
}

func (s *Store) SidebarCollapsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebarCollapsed
}

// --- Dashboard metrics ---

// SetDashboardMetrics replaces the metrics snapshot wholesale; there is no
// partial merge.
func (s *Store) SetDashboardMetrics(m DashboardMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = &m
}

func (s *Store) DashboardMetrics() (DashboardMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics == nil {
		return DashboardMetrics{}, false
	}
	return *s.metrics, true
}

// --- Content generations ---

// AddContentGeneration prepends a record (newest-first ordering).
// Identifier uniqueness is enforced; a colliding id returns ErrDuplicateID.
func (s *Store) AddContentGeneration(gen ContentGeneration) error {
	if gen.ID == "" {
		return errors.New("generation id is required")
	}
	if !gen.Status.Valid() {
		return fmt.Errorf("unknown status %q", gen.Status)
	}
	if gen.Status == StatusFailed && gen.ErrorMessage == "" {
		return errors.New("failed generation requires an error message")
	}
	gen.Progress = clampProgress(gen.Progress)
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.generations {
		if s.generations[i].ID == gen.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, gen.ID)
		}
	}
	s.generations = append([]ContentGeneration{gen}, s.generations...)
	return nil
}

// GenerationPatch is a partial update to a ContentGeneration. Nil fields
// are left untouched.
type GenerationPatch struct {
	Status              *Status
	Progress            *int
	EstimatedCompletion *time.Time
	GeneratedContent    *GeneratedContent
	ErrorMessage        *string
}

// UpdateContentGeneration merges patch into the matching record. An absent
// id is a silent no-op; an incomplete lifecycle cannot move backward, so a
// regressive status change returns ErrInvalidTransition and a regressive
// progress value is ignored. Progress reaching 100 on a running record
// transitions it to completed.
func (s *Store) UpdateContentGeneration(id string, patch GenerationPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.findLocked(id)
	if gen == nil {
		return nil
	}

	if patch.Status != nil {
		next := *patch.Status
		if !next.Valid() {
			return fmt.Errorf("unknown status %q", next)
		}
		if !gen.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, gen.Status, next)
		}
		if next == StatusFailed && patch.ErrorMessage == nil && gen.ErrorMessage == "" {
			return errors.New("failed generation requires an error message")
		}
		gen.Status = next
	}
	if patch.ErrorMessage != nil {
		gen.ErrorMessage = *patch.ErrorMessage
	}
	if patch.EstimatedCompletion != nil {
		gen.EstimatedCompletion = patch.EstimatedCompletion
	}
	if patch.GeneratedContent != nil {
		gen.GeneratedContent = patch.GeneratedContent
	}
	if patch.Progress != nil {
		p := clampProgress(*patch.Progress)
		if p > gen.Progress {
			gen.Progress = p
		}
	}

	s.reconcileCompletionLocked(gen)
	return nil
}

// AdvanceProgress increases a record's progress by delta, clamped to 100.
// Only records in the generating state advance; the updated record is
// returned so callers can react to auto-completion.
func (s *Store) AdvanceProgress(id string, delta int) (ContentGeneration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.findLocked(id)
	if gen == nil || gen.Status != StatusGenerating {
		return ContentGeneration{}, false
	}
	if delta > 0 {
		gen.Progress = clampProgress(gen.Progress + delta)
	}
	s.reconcileCompletionLocked(gen)
	return *gen, true
}

// reconcileCompletionLocked enforces the progress/completion invariant:
// progress is 100 exactly when the record is completed.
func (s *Store) reconcileCompletionLocked(gen *ContentGeneration) {
	if gen.Progress >= 100 && (gen.Status == StatusGenerating || gen.Status == StatusProcessing) {
		gen.Status = StatusCompleted
	}
	if gen.Status == StatusCompleted {
		gen.Progress = 100
	}
}

// RemoveContentGeneration deletes the matching record; absent ids no-op.
func (s *Store) RemoveContentGeneration(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.generations {
		if s.generations[i].ID == id {
			s.generations = append(s.generations[:i], s.generations[i+1:]...)
			return true
		}
	}
	return false
}

// ContentGeneration returns a copy of the record with the given id.
func (s *Store) ContentGeneration(id string) (ContentGeneration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen := s.findLocked(id); gen != nil {
		return *gen, true
	}
	return ContentGeneration{}, false
}

// ContentGenerations returns a copy of the collection, newest first.
func (s *Store) ContentGenerations() []ContentGeneration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ContentGeneration, len(s.generations))
	copy(out, s.generations)
	return out
}

func (s *Store) findLocked(id string) *ContentGeneration {
	for i := range s.generations {
		if s.generations[i].ID == id {
			return &s.generations[i]
		}
	}
	return nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// --- Notifications ---

// AddNotification prepends a notification. New notifications are unread by
// construction regardless of the caller's Read field.
func (s *Store) AddNotification(n Notification) {
	n.Read = false
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append([]Notification{n}, s.notifications...)
}

// MarkNotificationRead sets read=true. Idempotent; absent ids no-op. A read
// notification never reverts to unread.
func (s *Store) MarkNotificationRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return
		}
	}
}

// ClearNotifications empties the collection.
func (s *Store) ClearNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
}

// Notifications returns a copy of the collection, newest first.
func (s *Store) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.notifications {
		if !s.notifications[i].Read {
			n++
		}
	}
	return n
}

// --- Loading flags ---

// SetLoading toggles one of the four independent named loading flags.
func (s *Store) SetLoading(key LoadingKey, loading bool) error {
	if !key.Valid() {
		return fmt.Errorf("unknown loading key %q", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[key] = loading
	return nil
}

func (s *Store) Loading(key LoadingKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading[key]
}

// --- Connectivity ---

// SetBackendURL records the AI Engine base URL. The connected flag is
// deliberately untouched: it only changes when a probe completes.
func (s *Store) SetBackendURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backendURL = url
}

func (s *Store) BackendURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backendURL
}

func (s *Store) SetBackendConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backendConnected = connected
}

func (s *Store) BackendConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backendConnected
}

// --- Seeded collections ---

func (s *Store) SetChannels(channels []Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = channels
}

func (s *Store) Channels() []Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

func (s *Store) SetScheduledContent(scheduled []ScheduledContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = scheduled
}

func (s *Store) ScheduledContent() []ScheduledContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledContent, len(s.scheduled))
	copy(out, s.scheduled)
	return out
}

func (s *Store) SetAPIKeys(keys []APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys = keys
}

func (s *Store) APIKeys() []APIKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]APIKey, len(s.apiKeys))
	copy(out, s.apiKeys)
	return out
}
