package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pedidos-service/internal/models"
)

// In-memory repositories backing the unit tests. They mirror the Postgres
// store's contract: reads return copies, Save only persists the entity's own
// columns, and deleting an order keeps its transactions.

type memStore struct {
	mu        sync.Mutex
	orders    map[int64]*models.Order
	items     map[int64]*models.LineItem
	txns      []models.Transaction
	nextOrder int64
	nextItem  int64
	nextTxn   int64
}

func newMemStore() *memStore {
	return &memStore{
		orders: make(map[int64]*models.Order),
		items:  make(map[int64]*models.LineItem),
	}
}

// seed stores an order with its line items, assigning ids.
func (m *memStore) seed(order *models.Order) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOrder++
	order.ID = m.nextOrder
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	stored := copyOrder(order)
	stored.LineItems = nil
	stored.Transactions = nil
	m.orders[order.ID] = stored
	for i := range order.LineItems {
		item := &order.LineItems[i]
		m.nextItem++
		item.ID = m.nextItem
		item.OrderID = order.ID
		ic := *item
		m.items[item.ID] = &ic
	}
	return order
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.LineItems = nil
	c.Transactions = nil
	return &c
}

type memOrders struct{ *memStore }

func (m memOrders) Create(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOrder++
	order.ID = m.nextOrder
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	m.orders[order.ID] = copyOrder(order)
	for i := range order.LineItems {
		item := &order.LineItems[i]
		m.nextItem++
		item.ID = m.nextItem
		item.OrderID = order.ID
		ic := *item
		m.items[item.ID] = &ic
	}
	return nil
}

func (m memOrders) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	order := copyOrder(stored)
	order.LineItems = m.itemsOfLocked(id)
	for _, t := range m.txns {
		if t.OrderID == id {
			order.Transactions = append(order.Transactions, t)
		}
	}
	return order, nil
}

func (m memOrders) Save(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
	}
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m memOrders) SaveWithItems(ctx context.Context, order *models.Order, items []models.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
	}
	m.orders[order.ID] = copyOrder(order)
	for i := range items {
		ic := items[i]
		m.items[ic.ID] = &ic
	}
	return nil
}

func (m memOrders) Query(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Order
	for _, o := range m.orders {
		if f.State != "" && o.State != f.State {
			continue
		}
		if f.CustomerID != 0 && o.CustomerID != f.CustomerID {
			continue
		}
		if f.EmployeeID != 0 && (o.EmployeeID == nil || *o.EmployeeID != f.EmployeeID) {
			continue
		}
		if f.UrgentOnly && !o.IsUrgent() {
			continue
		}
		if !f.From.IsZero() && !f.To.IsZero() {
			if o.CreatedAt.Before(f.From) || o.CreatedAt.After(f.To) {
				continue
			}
		}
		matched = append(matched, *copyOrder(o))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	limit := f.Limit
	if limit < 1 {
		limit = 10
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m memOrders) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	delete(m.orders, id)
	for itemID, item := range m.items {
		if item.OrderID == id {
			delete(m.items, itemID)
		}
	}
	return nil
}

func (m memOrders) CountByState(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, o := range m.orders {
		counts[o.State]++
	}
	return counts, nil
}

func (m memOrders) Revenue(ctx context.Context, from, to time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	for _, o := range m.orders {
		if o.State == models.OrderStateCancelado {
			continue
		}
		if !from.IsZero() && !to.IsZero() {
			if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
				continue
			}
		}
		sum += o.Total
	}
	return sum, nil
}

func (m memOrders) AvgDeliveryDays(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	var n int
	for _, o := range m.orders {
		if o.DeliveredAt == nil {
			continue
		}
		sum += o.DeliveredAt.Sub(o.CreatedAt).Hours() / 24
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (m *memStore) itemsOfLocked(orderID int64) []models.LineItem {
	var items []models.LineItem
	for _, item := range m.items {
		if item.OrderID == orderID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

type memItems struct{ *memStore }

func (m memItems) GetByID(ctx context.Context, id, orderID int64) (*models.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.OrderID != orderID {
		return nil, fmt.Errorf("line item %d of order %d: %w", id, orderID, ErrNotFound)
	}
	c := *item
	return &c, nil
}

func (m memItems) Save(ctx context.Context, item *models.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return fmt.Errorf("line item %d: %w", item.ID, ErrNotFound)
	}
	c := *item
	m.items[item.ID] = &c
	return nil
}

func (m memItems) ListByOrder(ctx context.Context, orderID int64) ([]models.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsOfLocked(orderID), nil
}

type memTxns struct{ *memStore }

func (m memTxns) Create(ctx context.Context, txn *models.Transaction, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTxn++
	txn.ID = m.nextTxn
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	m.txns = append(m.txns, *txn)

	stored, ok := m.orders[order.ID]
	if !ok {
		return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
	}
	stored.Deposit = order.Deposit
	stored.Paid = order.Paid
	stored.PaidAt = order.PaidAt
	return nil
}

// failingOrderWrites refuses every order write, for exercising rollback
// behavior. Reads pass through to the store.
type failingOrderWrites struct{ memOrders }

func (f failingOrderWrites) Save(ctx context.Context, order *models.Order) error {
	return errors.New("order write refused")
}

func (f failingOrderWrites) SaveWithItems(ctx context.Context, order *models.Order, items []models.LineItem) error {
	return errors.New("order write refused")
}

// eventLog records published events instead of writing to Kafka.
type eventLog struct {
	mu     sync.Mutex
	events []interface{}
}

func (l *eventLog) record(event interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) PublishOrderCreated(ctx context.Context, e *models.OrderCreatedEvent) error {
	return l.record(e)
}
func (l *eventLog) PublishOrderStateChanged(ctx context.Context, e *models.OrderStateChangedEvent) error {
	return l.record(e)
}
func (l *eventLog) PublishProductionUpdated(ctx context.Context, e *models.ProductionUpdatedEvent) error {
	return l.record(e)
}
func (l *eventLog) PublishPaymentRegistered(ctx context.Context, e *models.PaymentRegisteredEvent) error {
	return l.record(e)
}
func (l *eventLog) PublishOrderDeleted(ctx context.Context, e *models.OrderDeletedEvent) error {
	return l.record(e)
}

// memCache is an in-process StatsCache.
type memCache struct {
	mu    sync.Mutex
	stats *models.Statistics
}

func (c *memCache) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats, nil
}

func (c *memCache) SetStatistics(ctx context.Context, stats *models.Statistics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = stats
	return nil
}

func (c *memCache) InvalidateStatistics(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = nil
	return nil
}

type testEnv struct {
	svc    *OrderService
	store  *memStore
	events *eventLog
	cache  *memCache
}

func newTestEnv() *testEnv {
	store := newMemStore()
	events := &eventLog{}
	cache := &memCache{}
	svc := NewOrderService(
		memOrders{store}, memItems{store}, memTxns{store}, events, cache)
	return &testEnv{svc: svc, store: store, events: events, cache: cache}
}

// seedOrder stores an order in the given state with line items in the given
// production states, one unit at 50.00 each.
func (e *testEnv) seedOrder(state string, itemStates ...string) *models.Order {
	order := &models.Order{
		OrderNumber:   GenerateOrderNumber(time.Now()),
		CustomerID:    1,
		State:         state,
		PaymentMethod: models.PaymentMethodPresencial,
		Priority:      models.PriorityNormal,
		PickupAddress: models.DefaultPickupAddress,
	}
	for _, st := range itemStates {
		item := models.LineItem{
			ProductID:       1,
			SizeID:          1,
			Quantity:        1,
			UnitPrice:       50.00,
			ProductionState: st,
		}
		item.RecomputeSubtotal()
		order.LineItems = append(order.LineItems, item)
	}
	order.RecomputeTotals()
	return e.store.seed(order)
}
