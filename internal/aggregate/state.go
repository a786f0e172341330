package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clmmLedger/internal/storage"
)

// StateStore persists the last processed event timestamp.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore stores state in a local JSON file.
type FileStateStore struct {
	Path string
	// Now stamps saved records. Defaults to time.Now.
	Now func() time.Time
}

type stateRecord struct {
	LastProcessed uint64 `json:"last_processed_ts"`
	UpdatedAt     string `json:"updated_at"`
}

func (s *FileStateStore) Load(_ context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	data, ok, err := storage.ReadFileIfExists(s.Path)
	if err != nil || !ok {
		return 0, false, err
	}

	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("parse aggregate state: %w", err)
	}
	return rec.LastProcessed, true, nil
}

func (s *FileStateStore) Save(_ context.Context, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	data, err := json.Marshal(stateRecord{
		LastProcessed: ts,
		UpdatedAt:     now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal aggregate state: %w", err)
	}
	if err := storage.WriteFileAtomic(s.Path, data); err != nil {
		return fmt.Errorf("save aggregate state: %w", err)
	}
	return nil
}
