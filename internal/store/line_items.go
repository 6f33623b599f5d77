package store

import (
	"context"
	"database/sql"
	"fmt"

	"pedidos-service/internal/models"
	"pedidos-service/internal/service"

	"github.com/jmoiron/sqlx"
)

// LineItemRepo persists per-line-item production state.
type LineItemRepo struct {
	db *sqlx.DB
}

// GetByID loads a line item scoped to its owning order. A line item that
// exists under a different order is reported as not found.
func (s *LineItemRepo) GetByID(ctx context.Context, id, orderID int64) (*models.LineItem, error) {
	var item models.LineItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM line_items WHERE id = $1 AND order_id = $2", id, orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("line item %d of order %d: %w", id, orderID, service.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

const lineItemUpdateSQL = `
	UPDATE line_items SET
		quantity = $1, unit_price = $2, surcharge = $3, subtotal = $4,
		production_state = $5, notes = $6, production_started = $7,
		production_ended = $8
	WHERE id = $9`

func lineItemUpdateArgs(item *models.LineItem) []interface{} {
	return []interface{}{
		item.Quantity, item.UnitPrice, item.Surcharge, item.Subtotal,
		item.ProductionState, item.Notes, item.ProductionStarted,
		item.ProductionEnded, item.ID,
	}
}

// Save updates a line item's mutable fields.
func (s *LineItemRepo) Save(ctx context.Context, item *models.LineItem) error {
	_, err := s.db.ExecContext(ctx, lineItemUpdateSQL, lineItemUpdateArgs(item)...)
	return err
}

// ListByOrder returns all line items of an order in insertion order.
func (s *LineItemRepo) ListByOrder(ctx context.Context, orderID int64) ([]models.LineItem, error) {
	var items []models.LineItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM line_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}
