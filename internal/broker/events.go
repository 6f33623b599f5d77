package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pedidos-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderStateChanged publishes OrderStateChanged event
func (ep *EventPublisher) PublishOrderStateChanged(ctx context.Context, event *models.OrderStateChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishProductionUpdated publishes ProductionUpdated event
func (ep *EventPublisher) PublishProductionUpdated(ctx context.Context, event *models.ProductionUpdatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishPaymentRegistered publishes PaymentRegistered event
func (ep *EventPublisher) PublishPaymentRegistered(ctx context.Context, event *models.PaymentRegisteredEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderDeleted publishes OrderDeleted event
func (ep *EventPublisher) PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onOrderStateChanged func(context.Context, *models.OrderStateChangedEvent) error
	onPaymentRegistered func(context.Context, *models.PaymentRegisteredEvent) error
	onAnyEvent          func(context.Context, *models.BaseEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderStateChanged registers a handler for OrderStateChanged events
func (eh *EventHandler) OnOrderStateChanged(handler func(context.Context, *models.OrderStateChangedEvent) error) {
	eh.onOrderStateChanged = handler
}

// OnPaymentRegistered registers a handler for PaymentRegistered events
func (eh *EventHandler) OnPaymentRegistered(handler func(context.Context, *models.PaymentRegisteredEvent) error) {
	eh.onPaymentRegistered = handler
}

// OnAnyEvent registers a handler invoked for every event after the typed one
func (eh *EventHandler) OnAnyEvent(handler func(context.Context, *models.BaseEvent) error) {
	eh.onAnyEvent = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderStateChanged:
		if eh.onOrderStateChanged != nil {
			var event models.OrderStateChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderStateChanged event: %w", err)
			}
			if err := eh.onOrderStateChanged(ctx, &event); err != nil {
				return err
			}
		}

	case models.EventTypePaymentRegistered:
		if eh.onPaymentRegistered != nil {
			var event models.PaymentRegisteredEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentRegistered event: %w", err)
			}
			if err := eh.onPaymentRegistered(ctx, &event); err != nil {
				return err
			}
		}

	case models.EventTypeOrderCreated, models.EventTypeProductionUpdated, models.EventTypeOrderDeleted:
		// handled by onAnyEvent below

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
		return nil
	}

	if eh.onAnyEvent != nil {
		return eh.onAnyEvent(ctx, &baseEvent)
	}
	return nil
}
