package service

import "sync"

// orderLocks serializes state-changing operations per order. The engine has a
// single logical writer per order: the whole load-validate-mutate-persist
// sequence runs under the order's mutex, including the production-completion
// check, so two line items finishing concurrently cannot lose updates.
// Operations on different orders proceed in parallel.
type orderLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for an order and returns its unlock function.
// Entries are never removed; the map is bounded by the set of orders touched
// by one process lifetime.
func (ol *orderLocks) Lock(orderID int64) func() {
	ol.mu.Lock()
	m, ok := ol.locks[orderID]
	if !ok {
		m = &sync.Mutex{}
		ol.locks[orderID] = m
	}
	ol.mu.Unlock()

	m.Lock()
	return m.Unlock
}
