package models

import (
	"math"
	"time"
)

// Order lifecycle states. Only the transitions listed in
// service.ValidTransitions are legal; Entregado and Cancelado are terminal.
const (
	OrderStateCotizacion     = "cotizacion"
	OrderStatePendiente      = "pendiente"
	OrderStateConfirmado     = "confirmado"
	OrderStateEnProduccion   = "en_produccion"
	OrderStateControlCalidad = "control_calidad"
	OrderStateTerminado      = "terminado"
	OrderStateListoRetiro    = "listo_retiro"
	OrderStateEntregado      = "entregado"
	OrderStateCancelado      = "cancelado"
)

// Payment methods on the order itself
const (
	PaymentMethodEfectivo   = "efectivo"   // cash in store
	PaymentMethodPresencial = "presencial" // cash on pickup
)

// Order priorities
const (
	PriorityNormal  = "normal"
	PriorityUrgente = "urgente"
	PriorityExpress = "express"
)

// Per-line-item production states. No transition table is enforced at this
// level; authorized callers may set any state.
const (
	ProductionStatePendiente      = "pendiente"
	ProductionStateDiseno         = "diseno"
	ProductionStateImpresion      = "impresion"
	ProductionStatePrensado       = "prensado"
	ProductionStateControlCalidad = "control_calidad"
	ProductionStateTerminado      = "terminado"
	ProductionStateConProblemas   = "con_problemas"
)

// Transaction methods and states
const (
	TransactionMethodEfectivoLocal   = "efectivo_local"
	TransactionMethodEfectivoEntrega = "efectivo_entrega"
	TransactionMethodSena            = "sena"

	TransactionStatePendiente  = "pendiente"
	TransactionStateCompletada = "completada"
	TransactionStateCancelada  = "cancelada"
)

// TaxRate is the VAT applied on the post-discount subtotal.
const TaxRate = 0.19

// DefaultPickupAddress is used when an order does not specify one.
const DefaultPickupAddress = "Local principal"

// Order represents one customer purchase from quotation through delivery.
type Order struct {
	ID                int64      `db:"id" json:"id"`
	OrderNumber       string     `db:"order_number" json:"order_number"`
	CustomerID        int64      `db:"customer_id" json:"customer_id"`
	EmployeeID        *int64     `db:"employee_id" json:"employee_id,omitempty"`
	State             string     `db:"state" json:"state"`
	PaymentMethod     string     `db:"payment_method" json:"payment_method"`
	Subtotal          float64    `db:"subtotal" json:"subtotal"`
	Discount          float64    `db:"discount" json:"discount"`
	Tax               float64    `db:"tax" json:"tax"`
	Total             float64    `db:"total" json:"total"`
	Deposit           float64    `db:"deposit" json:"deposit"`
	Paid              bool       `db:"paid" json:"paid"`
	PaidAt            *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	PickupAddress     string     `db:"pickup_address" json:"pickup_address"`
	EstimatedDelivery *time.Time `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	Priority          string     `db:"priority" json:"priority"`
	ProductionNotes   string     `db:"production_notes" json:"production_notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`

	// Loaded relations, not columns
	LineItems    []LineItem    `db:"-" json:"line_items,omitempty"`
	Transactions []Transaction `db:"-" json:"transactions,omitempty"`
}

// OutstandingBalance is the amount still owed: total minus deposit received.
// Always derived, never stored.
func (o *Order) OutstandingBalance() float64 {
	return round2(o.Total - o.Deposit)
}

// IsTerminal reports whether the order reached a final lifecycle state.
func (o *Order) IsTerminal() bool {
	return o.State == OrderStateEntregado || o.State == OrderStateCancelado
}

// IsUrgent reports whether the order carries an elevated priority.
func (o *Order) IsUrgent() bool {
	return o.Priority == PriorityUrgente || o.Priority == PriorityExpress
}

// RecomputeTotals recalculates subtotal, tax and total from the loaded line
// items and the discount. Must be called whenever line items change.
func (o *Order) RecomputeTotals() {
	var itemsTotal float64
	for i := range o.LineItems {
		itemsTotal += o.LineItems[i].Subtotal
	}
	o.Subtotal = round2(itemsTotal - o.Discount)
	o.Tax = round2(o.Subtotal * TaxRate)
	o.Total = round2(o.Subtotal + o.Tax)
}

// DaysToEstimatedDelivery returns the whole days remaining until the
// estimated delivery date, or 0 when none is set.
func (o *Order) DaysToEstimatedDelivery(now time.Time) int {
	if o.EstimatedDelivery == nil {
		return 0
	}
	return int(math.Ceil(o.EstimatedDelivery.Sub(now).Hours() / 24))
}

// LineItem is one product/size/customization combination within an order.
type LineItem struct {
	ID                int64      `db:"id" json:"id"`
	OrderID           int64      `db:"order_id" json:"order_id"`
	ProductID         int64      `db:"product_id" json:"product_id"`
	SizeID            int64      `db:"size_id" json:"size_id"`
	CustomizationID   *int64     `db:"customization_id" json:"customization_id,omitempty"`
	Quantity          int        `db:"quantity" json:"quantity"`
	UnitPrice         float64    `db:"unit_price" json:"unit_price"`
	Surcharge         float64    `db:"surcharge" json:"surcharge"`
	Subtotal          float64    `db:"subtotal" json:"subtotal"`
	ProductionState   string     `db:"production_state" json:"production_state"`
	Notes             string     `db:"notes" json:"notes,omitempty"`
	ProductionStarted *time.Time `db:"production_started" json:"production_started,omitempty"`
	ProductionEnded   *time.Time `db:"production_ended" json:"production_ended,omitempty"`
}

// RecomputeSubtotal applies quantity * (unit price + customization surcharge).
func (li *LineItem) RecomputeSubtotal() {
	li.Subtotal = round2(float64(li.Quantity) * (li.UnitPrice + li.Surcharge))
}

// InProduction reports whether the item is in an active production stage.
func (li *LineItem) InProduction() bool {
	switch li.ProductionState {
	case ProductionStateDiseno, ProductionStateImpresion, ProductionStatePrensado:
		return true
	}
	return false
}

// Finished reports terminal success of production.
func (li *LineItem) Finished() bool {
	return li.ProductionState == ProductionStateTerminado
}

// HasProblems reports terminal failure of production.
func (li *LineItem) HasProblems() bool {
	return li.ProductionState == ProductionStateConProblemas
}

// Transaction is one monetary movement against an order. The ledger is
// append-only: corrections are new transactions, never amount edits.
type Transaction struct {
	ID         int64     `db:"id" json:"id"`
	OrderID    int64     `db:"order_id" json:"order_id"`
	Method     string    `db:"method" json:"method"`
	State      string    `db:"state" json:"state"`
	Amount     float64   `db:"amount" json:"amount"`
	EmployeeID *int64    `db:"employee_id" json:"employee_id,omitempty"`
	Notes      string    `db:"notes" json:"notes,omitempty"`
	IsDeposit  bool      `db:"is_deposit" json:"is_deposit"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Completed reports whether the transaction settled.
func (t *Transaction) Completed() bool {
	return t.State == TransactionStateCompletada
}

// Statistics summarizes order counts and revenue for the dashboard.
type Statistics struct {
	TotalOrders        int64   `json:"total_orders"`
	PendingOrders      int64   `json:"pending_orders"`
	InProductionOrders int64   `json:"in_production_orders"`
	FinishedOrders     int64   `json:"finished_orders"`
	TotalRevenue       float64 `json:"total_revenue"`
	MonthRevenue       float64 `json:"month_revenue"`
	AvgDeliveryDays    float64 `json:"avg_delivery_days"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
