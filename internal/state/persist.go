package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot is the durable subset of store state. Everything else starts
// empty each session and is re-seeded by the composition root.
type Snapshot struct {
	User             *User `json:"user"`
	Authenticated    bool  `json:"authenticated"`
	Theme            Theme `json:"theme"`
	SidebarCollapsed bool  `json:"sidebarCollapsed"`
}

// Persister saves and loads the preference snapshot.
type Persister interface {
	// Save writes the snapshot. Called after every mutation that touches
	// a persisted field.
	Save(Snapshot) error

	// Load reads the snapshot back. ok is false when no snapshot exists;
	// a missing snapshot is not an error.
	Load() (snap Snapshot, ok bool, err error)
}

// FilePersister stores the snapshot as a JSON file.
type FilePersister struct {
	path string
}

// NewFilePersister creates a FilePersister writing to the given path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Save(snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o600)
}

// Load fails open: an unreadable or unparseable file is treated as "no
// persisted state" rather than an error.
func (p *FilePersister) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}
