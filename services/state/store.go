package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"audubonwatch/internal/listing"
	"audubonwatch/pkg/errors"
)

// Store persists the run output as a single JSON document on disk.
type Store struct {
	path string
}

// NewStore creates a store writing to path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the previous run output. An absent file is not an error; it
// yields an empty baseline so the first run marks nothing as new against
// nothing and every listing counts as new.
func (s *Store) Load() (*listing.RunOutput, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &listing.RunOutput{}, nil
		}
		return nil, errors.NewState("failed to read state document", err)
	}

	var out listing.RunOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.NewState("failed to decode state document", err)
	}
	return &out, nil
}

// Save writes the run output atomically: a temp file in the same directory
// is renamed over the target so a crash never leaves a half-written document.
func (s *Store) Save(out *listing.RunOutput) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.NewState("failed to encode state document", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".audubonwatch-*.json")
	if err != nil {
		return errors.NewState("failed to create temp state file", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.NewState("failed to write state document", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.NewState("failed to close temp state file", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.NewState("failed to replace state document", err)
	}
	return nil
}
