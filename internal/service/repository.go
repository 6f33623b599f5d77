package service

import (
	"context"
	"time"

	"pedidos-service/internal/models"
)

// OrderFilter narrows the order listing. Zero values mean "no filter".
type OrderFilter struct {
	State      string
	CustomerID int64
	EmployeeID int64
	From       time.Time
	To         time.Time
	UrgentOnly bool
	Page       int
	Limit      int
}

// OrderRepository persists orders. Create inserts the order together with its
// line items in one storage transaction; SaveWithItems updates the order and
// the given line items in one storage transaction so a state change and its
// line-item fan-out commit together or not at all; Delete removes the order
// and its line items but never its transactions (audit trail).
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	SaveWithItems(ctx context.Context, order *models.Order, items []models.LineItem) error
	Query(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	Delete(ctx context.Context, id int64) error
	CountByState(ctx context.Context) (map[string]int64, error)
	Revenue(ctx context.Context, from, to time.Time) (float64, error)
	AvgDeliveryDays(ctx context.Context) (float64, error)
}

// LineItemRepository persists line items. GetByID scopes the lookup to the
// owning order so a mismatched order id surfaces as a missing row.
type LineItemRepository interface {
	GetByID(ctx context.Context, id, orderID int64) (*models.LineItem, error)
	Save(ctx context.Context, item *models.LineItem) error
	ListByOrder(ctx context.Context, orderID int64) ([]models.LineItem, error)
}

// TransactionRepository appends to the payment ledger. Create persists the
// transaction and the order's updated payment fields in one storage
// transaction so the ledger and the order never diverge.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction, order *models.Order) error
}

// EventSink publishes domain events. Publish failures are logged by callers
// and never fail the operation that raised them.
type EventSink interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStateChanged(ctx context.Context, event *models.OrderStateChangedEvent) error
	PublishProductionUpdated(ctx context.Context, event *models.ProductionUpdatedEvent) error
	PublishPaymentRegistered(ctx context.Context, event *models.PaymentRegisteredEvent) error
	PublishOrderDeleted(ctx context.Context, event *models.OrderDeletedEvent) error
}

// StatsCache caches the computed dashboard statistics. GetStatistics returns
// (nil, nil) on a cache miss.
type StatsCache interface {
	GetStatistics(ctx context.Context) (*models.Statistics, error)
	SetStatistics(ctx context.Context, stats *models.Statistics) error
	InvalidateStatistics(ctx context.Context) error
}
