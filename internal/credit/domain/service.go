package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound            = errors.New("user_not_found")
	ErrInsufficientCredits = errors.New("insufficient_credits")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidPackage      = errors.New("invalid_package")
	ErrPurchaseNotFound    = errors.New("purchase_not_found")
	ErrAlreadyFinalized    = errors.New("purchase_already_finalized")
)

// Ledger is the authoritative, race-safe holder of each user's balance.
// Debit is a single conditional update against the stored balance, never a
// read-modify-write in two round trips.
type Ledger interface {
	Balance(ctx context.Context, userID snowflake.ID) (int64, error)
	HasSufficientCredits(ctx context.Context, userID snowflake.ID, required int64) (bool, error)
	Debit(ctx context.Context, userID snowflake.ID, amount int64) (int64, error)
	Credit(ctx context.Context, userID snowflake.ID, amount int64) (int64, error)
}

type CreatePurchaseRequest struct {
	UserID      snowflake.ID
	PackageCode string
	SessionID   string
}

// Purchases manages the credit purchase audit trail. Complete and Fail are
// guarded one-way transitions: the first caller to observe pending wins and
// gets won=true, every later caller gets won=false.
type Purchases interface {
	CreatePending(ctx context.Context, req CreatePurchaseRequest) (*CreditPurchase, error)
	GetByID(ctx context.Context, id snowflake.ID) (*CreditPurchase, error)
	GetBySessionID(ctx context.Context, sessionID string) (*CreditPurchase, error)
	Complete(ctx context.Context, id snowflake.ID) (won bool, err error)
	Fail(ctx context.Context, id snowflake.ID) (won bool, err error)
}
