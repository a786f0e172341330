package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"clmmLedger/internal/config"
	"clmmLedger/internal/events"
	"clmmLedger/internal/storage"
	"clmmLedger/internal/storage/postgres"
)

// backends are the stores a command opened. pg is nil without a DSN.
type backends struct {
	world storage.WorldStore
	pg    *postgres.Store
}

func (b *backends) Close() {
	if b.pg != nil {
		b.pg.Close()
	}
}

func openBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backends, error) {
	if cfg.PGDSN == "" {
		logger.Debug("accounts in state file", zap.String("path", cfg.StateFile))
		return &backends{world: storage.NewStateFile(cfg.StateFile)}, nil
	}

	pg, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pg.SetRetry(cfg.MaxRetries, cfg.RetryBackoff)
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	logger.Debug("accounts in postgres", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
	return &backends{world: pg, pg: pg}, nil
}

func (b *backends) eventSinks(cfg config.Config) ([]events.Sink, error) {
	sinks := make([]events.Sink, 0, len(cfg.EventSinks))
	for _, name := range cfg.EventSinks {
		switch name {
		case config.SinkJSONL:
			sinks = append(sinks, storage.NewJsonlStorage(cfg.EventsOut))
		case config.SinkPostgres:
			if b.pg == nil {
				return nil, fmt.Errorf("event sink %q needs pg-dsn", name)
			}
			sinks = append(sinks, b.pg)
		}
	}
	return sinks, nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
