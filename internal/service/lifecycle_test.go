package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pedidos-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStates = []string{
	models.OrderStateCotizacion,
	models.OrderStatePendiente,
	models.OrderStateConfirmado,
	models.OrderStateEnProduccion,
	models.OrderStateControlCalidad,
	models.OrderStateTerminado,
	models.OrderStateListoRetiro,
	models.OrderStateEntregado,
	models.OrderStateCancelado,
}

func TestTransitionTable(t *testing.T) {
	ctx := context.Background()

	for _, from := range allStates {
		for _, to := range allStates {
			env := newTestEnv()
			order := env.seedOrder(from, models.ProductionStatePendiente)

			updated, err := env.svc.Transition(ctx, order.ID, to)

			if isValidTransition(from, to) {
				require.NoError(t, err, "%s -> %s should be legal", from, to)
				assert.Equal(t, to, updated.State)

				persisted, err := env.svc.Get(ctx, order.ID)
				require.NoError(t, err)
				assert.Equal(t, to, persisted.State)
			} else {
				var invalid *InvalidTransitionError
				require.ErrorAs(t, err, &invalid, "%s -> %s should be rejected", from, to)
				assert.Equal(t, from, invalid.From)
				assert.Equal(t, to, invalid.To)

				persisted, err := env.svc.Get(ctx, order.ID)
				require.NoError(t, err)
				assert.Equal(t, from, persisted.State, "state must not change on rejection")
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, state := range []string{models.OrderStateEntregado, models.OrderStateCancelado} {
		assert.Empty(t, ValidTransitions[state])
	}
}

func TestTransitionToProductionStartsPendingItems(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	order := env.seedOrder(models.OrderStateConfirmado,
		models.ProductionStatePendiente,
		models.ProductionStatePendiente,
		models.ProductionStateImpresion)

	before := time.Now()
	updated, err := env.svc.Transition(ctx, order.ID, models.OrderStateEnProduccion)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStateEnProduccion, updated.State)

	items, err := memItems{env.store}.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	for _, item := range items[:2] {
		assert.Equal(t, models.ProductionStateDiseno, item.ProductionState)
		require.NotNil(t, item.ProductionStarted)
		assert.WithinDuration(t, before, *item.ProductionStarted, 5*time.Second)
	}

	// the item already past Pendiente is untouched
	assert.Equal(t, models.ProductionStateImpresion, items[2].ProductionState)
	assert.Nil(t, items[2].ProductionStarted)
}

func TestQualityControlBounceReentersProductionIdempotently(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	order := env.seedOrder(models.OrderStateControlCalidad,
		models.ProductionStatePrensado)

	_, err := env.svc.Transition(ctx, order.ID, models.OrderStateEnProduccion)
	require.NoError(t, err)

	items, err := memItems{env.store}.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductionStatePrensado, items[0].ProductionState,
		"items already in production keep their stage on a bounce")
}

func TestTransitionToDeliveredStampsActualDate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	order := env.seedOrder(models.OrderStateListoRetiro, models.ProductionStateTerminado)

	before := time.Now()
	updated, err := env.svc.Transition(ctx, order.ID, models.OrderStateEntregado)
	require.NoError(t, err)

	require.NotNil(t, updated.DeliveredAt)
	assert.WithinDuration(t, before, *updated.DeliveredAt, 5*time.Second)
}

func TestTransitionToProductionFailedSaveLeavesItemsUntouched(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	order := env.seedOrder(models.OrderStateConfirmado, models.ProductionStatePendiente)

	svc := NewOrderService(
		failingOrderWrites{memOrders{env.store}},
		memItems{env.store}, memTxns{env.store}, env.events, env.cache)

	_, err := svc.Transition(ctx, order.ID, models.OrderStateEnProduccion)
	require.Error(t, err)

	persisted, err := env.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStateConfirmado, persisted.State)

	items, err := memItems{env.store}.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ProductionStatePendiente, items[0].ProductionState,
		"a failed order save must not leave line items advanced")
	assert.Nil(t, items[0].ProductionStarted)
	assert.Empty(t, env.events.events, "nothing committed, nothing published")
}

func TestTransitionUnknownOrder(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Transition(context.Background(), 999, models.OrderStatePendiente)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTransitionPublishesEvent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	order := env.seedOrder(models.OrderStatePendiente, models.ProductionStatePendiente)

	_, err := env.svc.Transition(ctx, order.ID, models.OrderStateConfirmado)
	require.NoError(t, err)

	require.Len(t, env.events.events, 1)
	event, ok := env.events.events[0].(*models.OrderStateChangedEvent)
	require.True(t, ok)
	assert.Equal(t, models.OrderStatePendiente, event.FromState)
	assert.Equal(t, models.OrderStateConfirmado, event.ToState)
	assert.False(t, event.Automatic)
}
