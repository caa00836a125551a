package repositories

import (
	"context"
	"errors"

	"github.com/upb/orders-backend/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

type transactionContextKey struct{}

// ContextWithTransaction returns a context carrying tx. Repositories run
// their statements on the transaction found in the context.
func ContextWithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionContextKey{}, tx)
}

// TransactionFromContext retrieves a transaction from the context if available
func TransactionFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(transactionContextKey{}).(Transaction)
	return tx, ok
}

// AccountRepository handles password account data operations
type AccountRepository interface {
	// ReserveEmail claims email for accountID. It reports false without
	// error when the email is already claimed.
	ReserveEmail(ctx context.Context, email string, accountID string) (bool, error)

	// Create creates a new account
	Create(ctx context.Context, account *models.Account) error

	// GetByEmail retrieves an account by normalized email.
	// Returns ErrNotFound when no account matches.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// OrderRepository handles order data operations
type OrderRepository interface {
	// Create inserts an order. CreatedAt is assigned by the database at
	// write time and written back to order.
	Create(ctx context.Context, order *models.Order) error

	// ListByOwner returns the owner's orders, newest first
	ListByOwner(ctx context.Context, ownerUID string, limit int) ([]*models.Order, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Accounts AccountRepository
	Orders   OrderRepository
}
