package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	SelectCredits(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, bool, error)
	// DebitConditional decrements the balance only when it covers the amount.
	// Returns whether a row changed.
	DebitConditional(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64) (bool, error)
	Increment(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64) (bool, error)

	InsertPurchase(ctx context.Context, db *gorm.DB, purchase *CreditPurchase) error
	FindPurchaseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CreditPurchase, error)
	FindPurchaseBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*CreditPurchase, error)
	// TransitionPurchase flips a pending purchase to the target status.
	// Returns whether this call performed the flip.
	TransitionPurchase(ctx context.Context, db *gorm.DB, id snowflake.ID, to PurchaseStatus) (bool, error)
}
