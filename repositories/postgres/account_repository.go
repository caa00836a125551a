package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/orders-backend/models"
	"github.com/upb/orders-backend/repositories"
	"go.uber.org/zap"
)

// AccountRepository implements the repositories.AccountRepository interface
type AccountRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB, logger *zap.Logger) repositories.AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

// ReserveEmail claims an email for an account. The insert is a no-op when
// the email already exists, so of two concurrent signups only one sees a
// row affected.
func (r *AccountRepository) ReserveEmail(ctx context.Context, email string, accountID string) (bool, error) {
	query := `
		INSERT INTO account_emails (email, account_id)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, email, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve email: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to reserve email: %w", err)
	}
	return rows == 1, nil
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
	).Scan(&account.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.logger.Debug("account created", zap.String("id", account.ID.String()))
	return nil
}

// GetByEmail retrieves an account through its email reservation
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT a.id, a.email, a.password_hash, a.created_at
		FROM account_emails e
		JOIN accounts a ON a.id = e.account_id
		WHERE e.email = $1
	`

	executor := GetExecutor(ctx, r.db)
	account := &models.Account{}

	err := executor.QueryRowContext(ctx, query, email).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}
