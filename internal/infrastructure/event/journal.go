package event

import (
	"context"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// JournalHandler writes every committed domain event to the structured log,
// giving operators one stream of what the engine did.
type JournalHandler struct {
	logger *zap.Logger
}

// NewJournalHandler creates a journal handler
func NewJournalHandler(log *zap.Logger) *JournalHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &JournalHandler{logger: log.Named("journal")}
}

// Handle logs the event with its aggregate reference
func (h *JournalHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	logger.WithTraceContext(ctx, h.logger).Info(event.EventType(),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes is empty: the journal receives every event
func (h *JournalHandler) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*JournalHandler)(nil)
