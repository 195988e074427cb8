// Package event forwards domain events raised during a command to the bus.
package event

import (
	"context"
	"reflect"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"go.uber.org/zap"
)

// Source is anything that accumulates domain events
type Source interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// Dispatcher publishes the events of aggregates a command touched. It is
// called only after the unit of work committed, so subscribers never see
// events of rolled-back work.
type Dispatcher struct {
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil publisher drops events.
func NewDispatcher(publisher shared.EventPublisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{publisher: publisher, logger: logger}
}

// Dispatch publishes and clears the events of every source. Publishing
// failures are logged; the command has already succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, sources ...Source) {
	if d == nil {
		return
	}
	for _, src := range sources {
		if src == nil || reflect.ValueOf(src).IsNil() {
			continue
		}
		events := src.GetDomainEvents()
		src.ClearDomainEvents()
		if d.publisher == nil || len(events) == 0 {
			continue
		}
		if err := d.publisher.Publish(ctx, events...); err != nil {
			d.logger.Warn("failed to publish domain events",
				zap.Int("count", len(events)),
				zap.String("first_event", events[0].EventType()),
				zap.Error(err),
			)
		}
	}
}
