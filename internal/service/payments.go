package service

import (
	"context"
	"fmt"
	"time"

	"pedidos-service/internal/models"
	"pedidos-service/internal/util"

	"go.uber.org/zap"
)

// RegisterPaymentRequest carries one payment against an order.
type RegisterPaymentRequest struct {
	Amount     float64 `json:"amount" binding:"required,gt=0"`
	Method     string  `json:"method" binding:"required"`
	EmployeeID *int64  `json:"employee_id,omitempty"`
	Notes      string  `json:"notes,omitempty"`
	IsDeposit  bool    `json:"is_deposit,omitempty"`
}

// RegisterPayment appends a completed transaction to the order's ledger.
//
// Non-deposit payments may not exceed the outstanding balance (total minus
// deposit received); deposits are exempt since they are collected before the
// final total is known. A deposit replaces the order's recorded deposit. A
// non-deposit payment that settles the remaining balance marks the order
// paid and stamps the payment time. Payment completion never changes the
// lifecycle state: an order can be delivered unpaid or paid mid-production.
func (s *OrderService) RegisterPayment(ctx context.Context, orderID int64, req *RegisterPaymentRequest) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.RegisterPayment")
	defer span.End()

	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	balance := order.OutstandingBalance()
	if !req.IsDeposit && req.Amount > balance {
		util.PaymentsRejectedTotal.WithLabelValues("excess").Inc()
		return nil, fmt.Errorf("payment of %.2f against balance %.2f: %w",
			req.Amount, balance, ErrExcessPayment)
	}

	txn := &models.Transaction{
		OrderID:    orderID,
		Method:     req.Method,
		State:      models.TransactionStateCompletada,
		Amount:     req.Amount,
		EmployeeID: req.EmployeeID,
		Notes:      req.Notes,
		IsDeposit:  req.IsDeposit,
		CreatedAt:  time.Now(),
	}

	if req.IsDeposit {
		// Replaces rather than accumulates; see DESIGN.md.
		order.Deposit = req.Amount
		util.DepositsRegisteredTotal.Inc()
	} else if balance-req.Amount <= 0 {
		now := time.Now()
		order.Paid = true
		order.PaidAt = &now
	}

	// Ledger entry and order payment fields persist together or not at all.
	if err := s.payments.Create(ctx, txn, order); err != nil {
		return nil, fmt.Errorf("failed to register payment: %w", err)
	}

	util.PaymentsRegisteredTotal.Inc()
	s.logger.Info("Payment registered",
		zap.Int64("order_id", orderID),
		zap.Float64("amount", req.Amount),
		zap.String("method", req.Method),
		zap.Bool("deposit", req.IsDeposit),
		zap.Bool("paid", order.Paid))

	event := &models.PaymentRegisteredEvent{
		BaseEvent:     newBaseEvent(models.EventTypePaymentRegistered),
		OrderID:       orderID,
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Method:        txn.Method,
		IsDeposit:     txn.IsDeposit,
		OrderPaid:     order.Paid,
	}
	if err := s.events.PublishPaymentRegistered(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentRegistered event", zap.Error(err))
	}

	return txn, nil
}
