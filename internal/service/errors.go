package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an order or line item does not exist, or when
// a line item does not belong to the stated order.
var ErrNotFound = errors.New("not found")

// ErrExcessPayment is returned when a non-deposit payment exceeds the
// outstanding balance. Deposits are exempt.
var ErrExcessPayment = errors.New("amount exceeds outstanding balance")

// InvalidTransitionError reports an order state change that violates the
// transition table.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order state from %s to %s", e.From, e.To)
}
