package service

import (
	"context"
	"fmt"
	"time"

	"pedidos-service/internal/models"
	"pedidos-service/internal/util"

	"go.uber.org/zap"
)

// ValidTransitions is the order lifecycle transition table. Any requested
// transition not listed here is rejected. Entregado and Cancelado have no
// outgoing edges; quality control may bounce an order back to production.
var ValidTransitions = map[string][]string{
	models.OrderStateCotizacion:     {models.OrderStatePendiente, models.OrderStateCancelado},
	models.OrderStatePendiente:      {models.OrderStateConfirmado, models.OrderStateCancelado},
	models.OrderStateConfirmado:     {models.OrderStateEnProduccion, models.OrderStateCancelado},
	models.OrderStateEnProduccion:   {models.OrderStateControlCalidad, models.OrderStateCancelado},
	models.OrderStateControlCalidad: {models.OrderStateTerminado, models.OrderStateEnProduccion},
	models.OrderStateTerminado:      {models.OrderStateListoRetiro},
	models.OrderStateListoRetiro:    {models.OrderStateEntregado},
	models.OrderStateEntregado:      {},
	models.OrderStateCancelado:      {},
}

func isValidTransition(from, to string) bool {
	for _, next := range ValidTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition is the only legal way to change an order's lifecycle state. It
// validates the requested edge, applies the target state's side effects and
// persists the order.
func (s *OrderService) Transition(ctx context.Context, orderID int64, target string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Transition")
	defer span.End()

	unlock := s.locks.Lock(orderID)
	defer unlock()

	return s.transitionLocked(ctx, orderID, target, false, nil)
}

// transitionLocked applies a transition while the caller already holds the
// order's lock. Used directly by the production-completion check so the
// read-then-write stays inside one critical section. Line items in pending
// persist atomically with the order.
func (s *OrderService) transitionLocked(ctx context.Context, orderID int64, target string, automatic bool, pending []models.LineItem) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.State
	if !isValidTransition(from, target) {
		util.InvalidTransitionsTotal.Inc()
		return nil, &InvalidTransitionError{From: from, To: target}
	}

	order.State = target
	itemsToSave := pending

	switch target {
	case models.OrderStateEnProduccion:
		started, err := s.startProduction(ctx, order)
		if err != nil {
			return nil, err
		}
		itemsToSave = append(itemsToSave, started...)
	case models.OrderStateEntregado:
		now := time.Now()
		order.DeliveredAt = &now
	}

	// The order row and any moved line items commit together or not at all.
	if len(itemsToSave) > 0 {
		err = s.orders.SaveWithItems(ctx, order, itemsToSave)
	} else {
		err = s.orders.Save(ctx, order)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	util.StateTransitionsTotal.WithLabelValues(target).Inc()
	s.logger.Info("Order state changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", from),
		zap.String("to", target),
		zap.Bool("automatic", automatic))

	event := &models.OrderStateChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderStateChanged),
		OrderID:   order.ID,
		FromState: from,
		ToState:   target,
		Automatic: automatic,
	}
	if err := s.events.PublishOrderStateChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStateChanged event", zap.Error(err))
	}

	return order, nil
}

// startProduction advances every line item still waiting in Pendiente to
// Diseno and stamps its production start, returning the changed items for
// the caller to persist with the order. Items already past Pendiente are
// untouched, so re-entering production after a quality-control bounce is
// idempotent.
func (s *OrderService) startProduction(ctx context.Context, order *models.Order) ([]models.LineItem, error) {
	items, err := s.items.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}

	now := time.Now()
	var started []models.LineItem
	for i := range items {
		item := &items[i]
		if item.ProductionState != models.ProductionStatePendiente {
			continue
		}
		item.ProductionState = models.ProductionStateDiseno
		item.ProductionStarted = &now
		started = append(started, *item)
	}

	order.LineItems = items
	return started, nil
}
