package worker

import (
	"context"
	"log"

	"pedidos-service/internal/broker"
	"pedidos-service/internal/models"
	"pedidos-service/internal/service"
)

// StatsWorker keeps the Redis statistics cache honest: it consumes the order
// event stream and invalidates the cache on every mutation, so dashboards
// served by any instance refresh after a write made by any other instance.
// It also logs the milestones the shop cares about, deliveries and settled
// payments, from the consumer side.
type StatsWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(consumer *broker.Consumer, cache service.StatsCache) *StatsWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderStateChanged(func(ctx context.Context, event *models.OrderStateChangedEvent) error {
		if event.ToState == models.OrderStateEntregado {
			log.Printf("Order %d delivered", event.OrderID)
		}
		return nil
	})

	eventHandler.OnPaymentRegistered(func(ctx context.Context, event *models.PaymentRegisteredEvent) error {
		if event.OrderPaid {
			log.Printf("Order %d fully paid (%.2f via %s)", event.OrderID, event.Amount, event.Method)
		}
		return nil
	})

	eventHandler.OnAnyEvent(func(ctx context.Context, event *models.BaseEvent) error {
		if err := cache.InvalidateStatistics(ctx); err != nil {
			log.Printf("Failed to invalidate stats cache: %v", err)
			return err
		}
		return nil
	})

	return &StatsWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *StatsWorker) Start(ctx context.Context) error {
	log.Println("Starting stats worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StatsWorker) Stop() error {
	log.Println("Stopping stats worker...")
	return w.consumer.Close()
}
