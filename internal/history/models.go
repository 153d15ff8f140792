package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Outcome classifies how a generation left the live collection.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Record is one archived generation outcome. The archive is write-mostly:
// it never re-populates the live state store, whose collections start empty
// each session.
type Record struct {
	ID           string
	GenerationID string
	Topic        string
	Platform     string
	ContentType  string
	Duration     int
	Outcome      string // "completed", "failed", "cancelled"
	Progress     int
	ErrorMessage string
	CreatedAt    time.Time // when the generation was submitted
	FinishedAt   time.Time // when it reached the terminal outcome
}
