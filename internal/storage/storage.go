package storage

import (
	"context"

	"clmmLedger/internal/ledger"
	"clmmLedger/internal/model"
)

// EventSink receives emitted event records.
type EventSink interface {
	WriteEvents(ctx context.Context, records []model.EventRecord) error
}

// WorldStore loads and saves the account set between runs.
type WorldStore interface {
	Load(ctx context.Context) (*ledger.World, error)
	Save(ctx context.Context, w *ledger.World) error
	// Update applies fn to the stored world and persists the result only if
	// fn succeeds.
	Update(ctx context.Context, fn func(*ledger.World) error) error
}
