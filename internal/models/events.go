package models

import "time"

// Event types
const (
	EventTypeOrderCreated      = "ORDER_CREATED"
	EventTypeOrderStateChanged = "ORDER_STATE_CHANGED"
	EventTypeProductionUpdated = "PRODUCTION_UPDATED"
	EventTypePaymentRegistered = "PAYMENT_REGISTERED"
	EventTypeOrderDeleted      = "ORDER_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is placed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64          `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	CustomerID  int64          `json:"customer_id"`
	Total       float64        `json:"total"`
	Items       []LineItemData `json:"items"`
}

// OrderStateChangedEvent published on every lifecycle transition,
// including the automatic promotion to quality control
type OrderStateChangedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	Automatic bool   `json:"automatic"`
}

// ProductionUpdatedEvent published when a line item's production state changes
type ProductionUpdatedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	LineItemID int64  `json:"line_item_id"`
	State      string `json:"state"`
}

// PaymentRegisteredEvent published when a transaction is appended to the ledger
type PaymentRegisteredEvent struct {
	BaseEvent
	OrderID       int64   `json:"order_id"`
	TransactionID int64   `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	IsDeposit     bool    `json:"is_deposit"`
	OrderPaid     bool    `json:"order_paid"`
}

// OrderDeletedEvent published when an order row is removed (admin cleanup);
// its transactions stay behind as the audit trail
type OrderDeletedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
}

// LineItemData represents item data in events
type LineItemData struct {
	LineItemID int64   `json:"line_item_id"`
	ProductID  int64   `json:"product_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}
