package store

import (
	"fmt"
	"time"

	"pedidos-service/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store bundles the Postgres-backed repositories consumed by the order
// service. All repos share one connection pool.
type Store struct {
	db           *sqlx.DB
	Orders       *OrderRepo
	LineItems    *LineItemRepo
	Transactions *TransactionRepo
}

var (
	_ service.OrderRepository       = (*OrderRepo)(nil)
	_ service.LineItemRepository    = (*LineItemRepo)(nil)
	_ service.TransactionRepository = (*TransactionRepo)(nil)
)

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		db:           db,
		Orders:       &OrderRepo{db: db},
		LineItems:    &LineItemRepo{db: db},
		Transactions: &TransactionRepo{db: db},
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}
