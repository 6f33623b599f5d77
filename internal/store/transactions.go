package store

import (
	"context"
	"fmt"

	"pedidos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// TransactionRepo appends to the payment ledger.
type TransactionRepo struct {
	db *sqlx.DB
}

// Create appends a transaction to the ledger and persists the order's
// updated payment fields in the same database transaction, so a failed
// order update never leaves a dangling ledger entry.
func (s *TransactionRepo) Create(ctx context.Context, txn *models.Transaction, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO transactions (order_id, method, state, amount, employee_id, notes, is_deposit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	if err := tx.GetContext(ctx, txn, query,
		txn.OrderID, txn.Method, txn.State, txn.Amount,
		txn.EmployeeID, txn.Notes, txn.IsDeposit,
	); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET deposit = $1, paid = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $4`,
		order.Deposit, order.Paid, order.PaidAt, order.ID,
	); err != nil {
		return fmt.Errorf("failed to update order payment fields: %w", err)
	}

	return tx.Commit()
}
