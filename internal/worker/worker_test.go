package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"pedidos-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	invalidations int
	err           error
}

func (c *fakeCache) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	return nil, nil
}

func (c *fakeCache) SetStatistics(ctx context.Context, stats *models.Statistics) error {
	return nil
}

func (c *fakeCache) InvalidateStatistics(ctx context.Context) error {
	c.invalidations++
	return c.err
}

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestStatsWorkerInvalidatesOnEveryEvent(t *testing.T) {
	ctx := context.Background()
	cache := &fakeCache{}
	w := NewStatsWorker(nil, cache)

	events := []kafka.Message{
		message(t, &models.OrderCreatedEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderCreated}, OrderID: 1}),
		message(t, &models.OrderStateChangedEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderStateChanged},
			OrderID:   1, FromState: models.OrderStateListoRetiro, ToState: models.OrderStateEntregado}),
		message(t, &models.PaymentRegisteredEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypePaymentRegistered},
			OrderID:   1, Amount: 119.00, Method: models.TransactionMethodEfectivoLocal, OrderPaid: true}),
		message(t, &models.ProductionUpdatedEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypeProductionUpdated}, OrderID: 1}),
		message(t, &models.OrderDeletedEvent{
			BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderDeleted}, OrderID: 1}),
	}

	for _, msg := range events {
		require.NoError(t, w.eventHandler.HandleMessage(ctx, msg))
	}
	assert.Equal(t, len(events), cache.invalidations)
}

func TestStatsWorkerSurfacesCacheError(t *testing.T) {
	cache := &fakeCache{err: errors.New("redis down")}
	w := NewStatsWorker(nil, cache)

	msg := message(t, &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderCreated}, OrderID: 1})

	err := w.eventHandler.HandleMessage(context.Background(), msg)
	assert.Error(t, err, "a failed invalidation must skip the commit for redelivery")
}
