package aggregate

import (
	"context"
	"fmt"
)

// StateRows is the progress table of a database.
type StateRows interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, ts uint64) error
}

// DBStateStore stores state as one named row, one row per window size.
type DBStateStore struct {
	Rows StateRows
	Name string
}

// StateName is the progress row name of an aggregation over windowSeconds.
func StateName(windowSeconds uint64) string {
	return fmt.Sprintf("aggregate:%d", windowSeconds)
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Rows == nil {
		return 0, false, nil
	}
	return s.Rows.LoadState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Rows == nil {
		return nil
	}
	return s.Rows.SaveState(ctx, s.Name, ts)
}
