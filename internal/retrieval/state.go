package retrieval

import (
	"fmt"
	"time"
)

// State is the engine's lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateLoadingCorpus
	StateLoadingIndex
	StateBuildingIndex
	StateReady
	StateFailed
)

var stateNames = [...]string{"uninitialized", "loading_corpus", "loading_index", "building_index", "ready", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown engine state %q", b)
}

// Status is a point-in-time view of the engine.
type Status struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
	// Rebuilding is set while a rebuild runs behind a published snapshot.
	Rebuilding  bool      `json:"rebuilding"`
	LastError   string    `json:"last_error,omitempty"`
	SnapshotID  string    `json:"snapshot_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Entries     int       `json:"entries"`
	Dimensions  int       `json:"dimensions"`
	Model       string    `json:"model"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	IndexOrigin string    `json:"index_origin,omitempty"`
	BuiltAt     time.Time `json:"built_at,omitempty"`
}
