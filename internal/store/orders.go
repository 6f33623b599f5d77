package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pedidos-service/internal/models"
	"pedidos-service/internal/service"

	"github.com/jmoiron/sqlx"
)

// OrderRepo persists orders and the order-level aggregate queries.
type OrderRepo struct {
	db *sqlx.DB
}

// Create inserts the order and all of its line items in one transaction.
func (s *OrderRepo) Create(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			order_number, customer_id, employee_id, state, payment_method,
			subtotal, discount, tax, total, deposit, pickup_address,
			estimated_delivery, priority, production_notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, order, query,
		order.OrderNumber, order.CustomerID, order.EmployeeID, order.State,
		order.PaymentMethod, order.Subtotal, order.Discount, order.Tax,
		order.Total, order.Deposit, order.PickupAddress,
		order.EstimatedDelivery, order.Priority, order.ProductionNotes,
	); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO line_items (
			order_id, product_id, size_id, customization_id, quantity,
			unit_price, surcharge, subtotal, production_state
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	for i := range order.LineItems {
		item := &order.LineItems[i]
		item.OrderID = order.ID
		if err := tx.GetContext(ctx, &item.ID, itemQuery,
			item.OrderID, item.ProductID, item.SizeID, item.CustomizationID,
			item.Quantity, item.UnitPrice, item.Surcharge, item.Subtotal,
			item.ProductionState,
		); err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID loads an order with its line items and transactions.
func (s *OrderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, service.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &order.LineItems,
		"SELECT * FROM line_items WHERE order_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &order.Transactions,
		"SELECT * FROM transactions WHERE order_id = $1 ORDER BY created_at", id)
	if err != nil {
		return nil, err
	}

	return &order, nil
}

const orderUpdateSQL = `
	UPDATE orders SET
		employee_id = $1, state = $2, payment_method = $3, subtotal = $4,
		discount = $5, tax = $6, total = $7, deposit = $8, paid = $9,
		paid_at = $10, pickup_address = $11, estimated_delivery = $12,
		delivered_at = $13, priority = $14, production_notes = $15,
		updated_at = NOW()
	WHERE id = $16`

func orderUpdateArgs(order *models.Order) []interface{} {
	return []interface{}{
		order.EmployeeID, order.State, order.PaymentMethod, order.Subtotal,
		order.Discount, order.Tax, order.Total, order.Deposit, order.Paid,
		order.PaidAt, order.PickupAddress, order.EstimatedDelivery,
		order.DeliveredAt, order.Priority, order.ProductionNotes, order.ID,
	}
}

// Save updates the order's mutable fields.
func (s *OrderRepo) Save(ctx context.Context, order *models.Order) error {
	_, err := s.db.ExecContext(ctx, orderUpdateSQL, orderUpdateArgs(order)...)
	return err
}

// SaveWithItems updates the order and the given line items in one
// transaction. State transitions that also move line items (starting
// production, the automatic quality-control promotion) go through here so
// the order row and its items never diverge.
func (s *OrderRepo) SaveWithItems(ctx context.Context, order *models.Order, items []models.LineItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, orderUpdateSQL, orderUpdateArgs(order)...); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	for i := range items {
		item := &items[i]
		if _, err := tx.ExecContext(ctx, lineItemUpdateSQL, lineItemUpdateArgs(item)...); err != nil {
			return fmt.Errorf("failed to update line item %d: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// Query returns one page of orders matching the filter plus the total count,
// ordered by creation date descending.
func (s *OrderRepo) Query(ctx context.Context, f service.OrderFilter) ([]models.Order, int64, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.State != "" {
		add("state = $%d", f.State)
	}
	if f.CustomerID != 0 {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.EmployeeID != 0 {
		add("employee_id = $%d", f.EmployeeID)
	}
	if f.UrgentOnly {
		conds = append(conds, fmt.Sprintf("priority IN ('%s', '%s')",
			models.PriorityUrgente, models.PriorityExpress))
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		add("created_at >= $%d", f.From)
		add("created_at <= $%d", f.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM orders"+where, args...); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit < 1 {
		limit = 10
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf("SELECT * FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))

	var orders []models.Order
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// Delete removes the order and its line items in one transaction.
// Transactions referencing the order are deliberately left in place.
func (s *OrderRepo) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM line_items WHERE order_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete line items: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %d: %w", id, service.ErrNotFound)
	}

	return tx.Commit()
}

// CountByState returns the number of orders in each lifecycle state.
func (s *OrderRepo) CountByState(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT state, COUNT(*) FROM orders GROUP BY state")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var state string
		var n int64
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

// Revenue sums order totals excluding cancelled orders. A zero from/to pair
// means all time.
func (s *OrderRepo) Revenue(ctx context.Context, from, to time.Time) (float64, error) {
	query := "SELECT COALESCE(SUM(total), 0) FROM orders WHERE state != $1"
	args := []interface{}{models.OrderStateCancelado}

	if !from.IsZero() && !to.IsZero() {
		query += " AND created_at BETWEEN $2 AND $3"
		args = append(args, from, to)
	}

	var revenue float64
	err := s.db.GetContext(ctx, &revenue, query, args...)
	return revenue, err
}

// AvgDeliveryDays averages the days between creation and actual delivery
// across delivered orders.
func (s *OrderRepo) AvgDeliveryDays(ctx context.Context) (float64, error) {
	var avg float64
	err := s.db.GetContext(ctx, &avg, `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (delivered_at - created_at)) / 86400), 0)
		FROM orders WHERE delivered_at IS NOT NULL`)
	return avg, err
}
