package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestJournalHandler_LogsEveryEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	journal := NewJournalHandler(zap.New(core))
	assert.Empty(t, journal.EventTypes())

	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(journal)

	posted := newTestEvent("TransactionPosted")
	require.NoError(t, bus.Publish(context.Background(), posted, newTestEvent("PayrollSlipPaid")))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "TransactionPosted", entries[0].Message)
	assert.Equal(t, "journal", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	assert.Equal(t, posted.EventID().String(), fields["event_id"])
	assert.Equal(t, "TestAggregate", fields["aggregate_type"])
	assert.Equal(t, posted.AggregateID().String(), fields["aggregate_id"])
	assert.Equal(t, "PayrollSlipPaid", entries[1].Message)
}

func TestJournalHandler_NilLogger(t *testing.T) {
	journal := NewJournalHandler(nil)
	assert.NoError(t, journal.Handle(context.Background(), newTestEvent("BatchReceived")))
}
