// Package domain contains the credit ledger models and contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// CreditPurchase is one attempted or completed purchase of a credit package.
// Rows are never deleted; the status moves pending -> completed or
// pending -> failed exactly once, and a completed purchase's credits reach
// the user balance exactly once.
type CreditPurchase struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID   `json:"user_id" gorm:"not null;index"`
	Credits   int64          `json:"credits" gorm:"not null"`
	Amount    int64          `json:"amount" gorm:"not null"`
	Currency  string         `json:"currency" gorm:"type:text;not null"`
	Status    PurchaseStatus `json:"status" gorm:"type:text;not null;default:'pending'"`
	SessionID *string        `json:"session_id" gorm:"type:text;uniqueIndex"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CreditPurchase) TableName() string { return "credit_purchases" }

// Package is a purchasable credit bundle. The catalog is a fixed set; prices
// are minor units.
type Package struct {
	Code     string `json:"code"`
	Credits  int64  `json:"credits"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

var Packages = []Package{
	{Code: "starter", Credits: 100, Amount: 900, Currency: "USD"},
	{Code: "growth", Credits: 500, Amount: 3900, Currency: "USD"},
	{Code: "agency", Credits: 2000, Amount: 12900, Currency: "USD"},
}

func PackageByCode(code string) (Package, bool) {
	for _, p := range Packages {
		if p.Code == code {
			return p, true
		}
	}
	return Package{}, false
}
