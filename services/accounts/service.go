// Package accounts implements password signup and login that mint
// self-issued tokens.
package accounts

import (
	"context"
	"errors"

	"github.com/upb/orders-backend/auth"
	"github.com/upb/orders-backend/models"
	"github.com/upb/orders-backend/repositories"
	"github.com/upb/orders-backend/services"
	"github.com/upb/orders-backend/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Password length bounds in bytes. bcrypt ignores input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// TokenSigner mints self-issued tokens
type TokenSigner interface {
	Configured() bool
	Sign(uid, email string) (string, error)
}

// Session is the result of a successful signup or login
type Session struct {
	Token   string
	Account *models.Account
}

// Service handles password accounts
type Service struct {
	accounts  repositories.AccountRepository
	txMgr     repositories.TransactionManager
	tokens    TokenSigner
	cost      int
	dummyHash []byte
	logger    *zap.Logger
}

// NewService creates a new account service. A non-positive cost uses
// bcrypt.DefaultCost.
func NewService(accounts repositories.AccountRepository, txMgr repositories.TransactionManager, tokens TokenSigner, cost int, logger *zap.Logger) (*Service, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}

	// Compared against on unknown emails so login timing does not reveal
	// whether an account exists.
	dummy, err := bcrypt.GenerateFromPassword([]byte("orders-backend-dummy-password"), cost)
	if err != nil {
		return nil, err
	}

	return &Service{
		accounts:  accounts,
		txMgr:     txMgr,
		tokens:    tokens,
		cost:      cost,
		dummyHash: dummy,
		logger:    logger,
	}, nil
}

// Signup registers email with password and returns a signed session.
// The email reservation and account insert share one transaction.
func (s *Service) Signup(ctx context.Context, email, password string) (*Session, error) {
	email = models.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, services.ErrInvalidEmail
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return nil, services.InvalidInput("password must be 8..72 bytes")
	}
	if !s.tokens.Configured() {
		return nil, services.ErrConfiguration
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}
	account := models.NewAccount(email, string(hash))

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		reserved, err := s.accounts.ReserveEmail(ctx, account.Email, account.ID.String())
		if err != nil {
			return services.WrapPersistence("failed to reserve email", err)
		}
		if !reserved {
			return services.ErrDuplicateEmail
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return services.WrapPersistence("failed to create account", err)
		}
		return nil
	})
	if err != nil {
		if services.GetErrorType(err) == "" {
			err = services.WrapPersistence("signup transaction failed", err)
		}
		if !services.IsConflictError(err) {
			s.logger.Error("signup failed", zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("account created", zap.String("uid", account.ID.String()))
	return s.session(account)
}

// Login verifies email and password. Unknown emails and wrong passwords
// fail with the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = models.NormalizeEmail(email)
	if !s.tokens.Configured() {
		return nil, services.ErrConfiguration
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, services.ErrInvalidLogin
	}
	if err != nil {
		s.logger.Error("failed to load account", zap.Error(err))
		return nil, services.WrapPersistence("failed to load account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, services.ErrInvalidLogin
	}

	return s.session(account)
}

func (s *Service) session(account *models.Account) (*Session, error) {
	token, err := s.tokens.Sign(account.ID.String(), account.Email)
	if err != nil {
		if errors.Is(err, auth.ErrConfiguration) {
			return nil, services.ErrConfiguration
		}
		return nil, services.WrapInternal("failed to sign token", err)
	}
	return &Session{Token: token, Account: account}, nil
}
