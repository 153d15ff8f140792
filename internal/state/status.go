package state

// Status is the lifecycle state of a ContentGeneration record.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusGenerating Status = "generating"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusPaused     Status = "paused"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusGenerating, StatusProcessing, StatusCompleted, StatusFailed, StatusPaused:
		return true
	}
	return false
}

// Terminal reports whether a record in status s can never transition again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Active reports whether the record still has work in flight.
func (s Status) Active() bool {
	return s == StatusQueued || s == StatusGenerating || s == StatusProcessing || s == StatusPaused
}

// transitions is the one-directional state machine; the only cycle allowed
// is pause/resume (generating <-> paused). Any active state may fail.
var transitions = map[Status][]Status{
	StatusQueued:     {StatusGenerating, StatusFailed},
	StatusGenerating: {StatusPaused, StatusProcessing, StatusCompleted, StatusFailed},
	StatusPaused:     {StatusGenerating, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a record may move from s to next.
// A no-op transition (s == next) is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
