package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"pedidos-service/internal/models"
	"pedidos-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService orchestrates the order lifecycle, per-line-item production
// tracking and the payment ledger.
type OrderService struct {
	orders   OrderRepository
	items    LineItemRepository
	payments TransactionRepository
	events   EventSink
	cache    StatsCache
	logger   *zap.Logger
	locks    *orderLocks
}

// NewOrderService creates a new order service
func NewOrderService(
	orders OrderRepository,
	items LineItemRepository,
	payments TransactionRepository,
	events EventSink,
	cache StatsCache,
) *OrderService {
	return &OrderService{
		orders:   orders,
		items:    items,
		payments: payments,
		events:   events,
		cache:    cache,
		logger:   util.GetLogger(),
		locks:    newOrderLocks(),
	}
}

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	CustomerID        int64             `json:"customer_id" binding:"required"`
	EmployeeID        *int64            `json:"employee_id,omitempty"`
	State             string            `json:"state,omitempty"`
	PaymentMethod     string            `json:"payment_method,omitempty"`
	Priority          string            `json:"priority,omitempty"`
	Discount          float64           `json:"discount,omitempty"`
	PickupAddress     string            `json:"pickup_address,omitempty"`
	EstimatedDelivery *time.Time        `json:"estimated_delivery,omitempty"`
	ProductionNotes   string            `json:"production_notes,omitempty"`
	OrderNumber       string            `json:"order_number,omitempty"`
	Items             []LineItemRequest `json:"items" binding:"required,min=1"`
}

// LineItemRequest represents one item of a new order
type LineItemRequest struct {
	ProductID       int64   `json:"product_id" binding:"required"`
	SizeID          int64   `json:"size_id" binding:"required"`
	CustomizationID *int64  `json:"customization_id,omitempty"`
	Quantity        int     `json:"quantity" binding:"required,min=1"`
	UnitPrice       float64 `json:"unit_price" binding:"required"`
	Surcharge       float64 `json:"surcharge,omitempty"`
}

// OrderPage is one page of the order listing
type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
}

// GenerateOrderNumber builds a human-readable order number of the form
// SR<year>-<4 digits>. The suffix is the tail of the current unix
// milliseconds, matching the numbering the shop already hands out.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("SR%d-%04d", now.Year(), now.UnixMilli()%10000)
}

// Create places a new order. Line item subtotals and order totals are
// computed here, never accepted from the caller; the order number is
// assigned when not supplied.
func (s *OrderService) Create(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Create")
	defer span.End()

	now := time.Now()

	state := req.State
	switch state {
	case "":
		state = models.OrderStatePendiente
	case models.OrderStateCotizacion, models.OrderStatePendiente:
	default:
		return nil, fmt.Errorf("orders start as %s or %s, not %s",
			models.OrderStateCotizacion, models.OrderStatePendiente, state)
	}

	order := &models.Order{
		OrderNumber:       req.OrderNumber,
		CustomerID:        req.CustomerID,
		EmployeeID:        req.EmployeeID,
		State:             state,
		PaymentMethod:     req.PaymentMethod,
		Discount:          req.Discount,
		PickupAddress:     req.PickupAddress,
		EstimatedDelivery: req.EstimatedDelivery,
		Priority:          req.Priority,
		ProductionNotes:   req.ProductionNotes,
		CreatedAt:         now,
	}
	if order.OrderNumber == "" {
		order.OrderNumber = GenerateOrderNumber(now)
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = models.PaymentMethodPresencial
	}
	if order.Priority == "" {
		order.Priority = models.PriorityNormal
	}
	if order.PickupAddress == "" {
		order.PickupAddress = models.DefaultPickupAddress
	}

	order.LineItems = make([]models.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		item := models.LineItem{
			ProductID:       it.ProductID,
			SizeID:          it.SizeID,
			CustomizationID: it.CustomizationID,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			Surcharge:       it.Surcharge,
			ProductionState: models.ProductionStatePendiente,
		}
		item.RecomputeSubtotal()
		order.LineItems = append(order.LineItems, item)
	}
	order.RecomputeTotals()

	if err := s.orders.Create(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.Total))

	itemData := make([]models.LineItemData, 0, len(order.LineItems))
	for _, it := range order.LineItems {
		itemData = append(itemData, models.LineItemData{
			LineItemID: it.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
		})
	}

	event := &models.OrderCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Total:       order.Total,
		Items:       itemData,
	}
	if err := s.events.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order, nil
}

// Get loads an order with its line items and transactions.
func (s *OrderService) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Get")
	defer span.End()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// List returns one page of orders matching the filter, newest first.
func (s *OrderService) List(ctx context.Context, f OrderFilter) (*OrderPage, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.List")
	defer span.End()

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}

	orders, total, err := s.orders.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	return &OrderPage{
		Orders:     orders,
		Total:      total,
		Page:       f.Page,
		TotalPages: int(math.Ceil(float64(total) / float64(f.Limit))),
	}, nil
}

// Delete removes an order and its line items. Transactions referencing the
// order are kept: the financial audit trail survives the order record.
func (s *OrderService) Delete(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Delete")
	defer span.End()

	unlock := s.locks.Lock(orderID)
	defer unlock()

	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.logger.Info("Order deleted", zap.Int64("order_id", orderID))

	event := &models.OrderDeletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderDeleted),
		OrderID:   orderID,
	}
	if err := s.events.PublishOrderDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderDeleted event", zap.Error(err))
	}
	return nil
}

// Statistics aggregates counts per state, all-time and current-month revenue
// (cancelled orders excluded) and the average days between creation and
// actual delivery. Month boundaries are calendar-month in local time.
func (s *OrderService) Statistics(ctx context.Context) (*models.Statistics, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Statistics")
	defer span.End()

	if cached, err := s.cache.GetStatistics(ctx); err != nil {
		s.logger.Warn("Stats cache read failed", zap.Error(err))
	} else if cached != nil {
		util.StatsCacheHitsTotal.Inc()
		return cached, nil
	}
	util.StatsCacheMissesTotal.Inc()

	counts, err := s.orders.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	totalRevenue, err := s.orders.Revenue(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	monthStart, monthEnd := currentMonthRange(time.Now())
	monthRevenue, err := s.orders.Revenue(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to sum month revenue: %w", err)
	}

	avgDays, err := s.orders.AvgDeliveryDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to average delivery days: %w", err)
	}

	stats := &models.Statistics{
		TotalOrders:        total,
		PendingOrders:      counts[models.OrderStatePendiente],
		InProductionOrders: counts[models.OrderStateEnProduccion],
		FinishedOrders:     counts[models.OrderStateTerminado],
		TotalRevenue:       totalRevenue,
		MonthRevenue:       monthRevenue,
		AvgDeliveryDays:    avgDays,
	}

	if err := s.cache.SetStatistics(ctx, stats); err != nil {
		s.logger.Warn("Stats cache write failed", zap.Error(err))
	}
	return stats, nil
}

// currentMonthRange returns the first instant of the month and the last
// instant of its final day, local time.
func currentMonthRange(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
