package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account represents a password account that signs in with a self-issued token
type Account struct {
	ID           uuid.UUID `json:"uid" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// TableName returns the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a new Account with a fresh id. The email is normalized.
func NewAccount(email, passwordHash string) *Account {
	return &Account{
		ID:           uuid.New(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
