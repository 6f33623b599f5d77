package service

import (
	"context"
	"fmt"
	"time"

	"pedidos-service/internal/models"
	"pedidos-service/internal/util"

	"go.uber.org/zap"
)

// UpdateProduction sets a line item's production state. Diseno stamps the
// production start (it is the production entry point), Terminado stamps the
// end. Notes, when given, overwrite the item's notes: last write wins.
//
// Before persisting, the sibling line items are checked: when the update
// leaves every item of an order in EnProduccion at Terminado, the order is
// promoted to ControlCalidad automatically and the item persists in the same
// storage transaction as the promotion. That is the only non-caller-initiated
// transition in the system, and it runs inside the same per-order critical
// section as the item update.
func (s *OrderService) UpdateProduction(ctx context.Context, orderID, itemID int64, target, notes string) (*models.LineItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateProduction")
	defer span.End()

	unlock := s.locks.Lock(orderID)
	defer unlock()

	item, err := s.items.GetByID(ctx, itemID, orderID)
	if err != nil {
		return nil, err
	}

	item.ProductionState = target
	if notes != "" {
		item.Notes = notes
	}

	now := time.Now()
	switch target {
	case models.ProductionStateDiseno:
		item.ProductionStarted = &now
	case models.ProductionStateTerminado:
		item.ProductionEnded = &now
	}

	promote, err := s.completesOrder(ctx, item)
	if err != nil {
		return nil, err
	}

	if promote {
		if _, err := s.transitionLocked(ctx, orderID, models.OrderStateControlCalidad,
			true, []models.LineItem{*item}); err != nil {
			return nil, fmt.Errorf("failed to promote order to quality control: %w", err)
		}
		util.AutoQualityControlTotal.Inc()
	} else if err := s.items.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save line item: %w", err)
	}

	util.ProductionUpdatesTotal.WithLabelValues(target).Inc()
	s.logger.Info("Production state updated",
		zap.Int64("order_id", orderID),
		zap.Int64("line_item_id", item.ID),
		zap.String("state", target))

	event := &models.ProductionUpdatedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeProductionUpdated),
		OrderID:    orderID,
		LineItemID: item.ID,
		State:      target,
	}
	if err := s.events.PublishProductionUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ProductionUpdated event", zap.Error(err))
	}

	return item, nil
}

// completesOrder reports whether persisting the updated item would leave
// every line item of an order that is still EnProduccion at Terminado. The
// caller must hold the order's lock.
func (s *OrderService) completesOrder(ctx context.Context, item *models.LineItem) (bool, error) {
	if !item.Finished() {
		return false, nil
	}

	items, err := s.items.ListByOrder(ctx, item.OrderID)
	if err != nil {
		return false, fmt.Errorf("failed to list line items: %w", err)
	}
	for i := range items {
		if items[i].ID == item.ID {
			continue
		}
		if !items[i].Finished() {
			return false, nil
		}
	}

	order, err := s.orders.GetByID(ctx, item.OrderID)
	if err != nil {
		return false, err
	}
	return order.State == models.OrderStateEnProduccion, nil
}
