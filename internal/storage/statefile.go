package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"clmmLedger/internal/ledger"
)

// StateFile keeps a ledger.World in a single JSON file.
type StateFile struct {
	path string
}

func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

func (s *StateFile) Path() string { return s.path }

// Load reads the world. A missing file yields an empty world.
func (s *StateFile) Load(_ context.Context) (*ledger.World, error) {
	data, ok, err := ReadFileIfExists(s.path)
	if err != nil {
		return nil, fmt.Errorf("state file: %w", err)
	}
	w := ledger.NewWorld()
	if !ok {
		return w, nil
	}
	if err := json.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return w, nil
}

// Save replaces the file with w.
func (s *StateFile) Save(_ context.Context, w *ledger.World) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("save state file: %w", err)
	}
	return nil
}

// Update loads the world, applies fn and saves the result if fn succeeds.
func (s *StateFile) Update(ctx context.Context, fn func(*ledger.World) error) error {
	w, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		return err
	}
	return s.Save(ctx, w)
}
