// Package events fans committed increase events out to storage sinks.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"clmmLedger/internal/model"
)

// Sink persists event records.
type Sink interface {
	WriteEvents(ctx context.Context, records []model.EventRecord) error
}

// Bus delivers IncreaseLiquidityEvents to every subscriber. Emit blocks until
// all current subscribers have received the event.
type Bus struct {
	feed event.Feed
}

func (b *Bus) Emit(ev model.IncreaseLiquidityEvent) {
	b.feed.Send(ev)
}

func (b *Bus) Subscribe(ch chan<- model.IncreaseLiquidityEvent) event.Subscription {
	return b.feed.Subscribe(ch)
}

// Forwarder copies events from a Bus into sinks on its own goroutine.
type Forwarder struct {
	sub  event.Subscription
	done chan struct{}
	err  error
}

// Forward subscribes to bus and writes each event to sinks, stamped with
// clock. It stops on the first sink error, when ctx is done, or on Close.
func Forward(ctx context.Context, bus *Bus, clock func() time.Time, logger *zap.Logger, sinks ...Sink) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	ch := make(chan model.IncreaseLiquidityEvent)
	f := &Forwarder{
		sub:  bus.Subscribe(ch),
		done: make(chan struct{}),
	}
	go func() {
		defer close(f.done)
		f.err = f.loop(ctx, ch, clock, logger, sinks)
	}()
	return f
}

func (f *Forwarder) loop(ctx context.Context, ch <-chan model.IncreaseLiquidityEvent, clock func() time.Time, logger *zap.Logger, sinks []Sink) error {
	for {
		select {
		case ev := <-ch:
			rec := ev.Record(uint64(clock().Unix()))
			for _, sink := range sinks {
				if err := sink.WriteEvents(ctx, []model.EventRecord{rec}); err != nil {
					f.sub.Unsubscribe()
					return fmt.Errorf("write event for %s: %w", rec.Decoded.PositionNftMint, err)
				}
			}
			logger.Debug("event forwarded", zap.String("position", rec.Decoded.PositionNftMint), zap.Int("sinks", len(sinks)))
		case err := <-f.sub.Err():
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		case <-ctx.Done():
			f.sub.Unsubscribe()
			return ctx.Err()
		}
	}
}

// Close stops forwarding and returns the first error the forwarder hit.
// Events whose Emit returned before Close have been written.
func (f *Forwarder) Close() error {
	f.sub.Unsubscribe()
	<-f.done
	return f.err
}
