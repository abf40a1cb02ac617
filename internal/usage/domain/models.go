// Package domain contains the append-only tool usage audit trail.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ToolUsage is one charged invocation of a tool. Rows are append-only and
// never mutated; the balance is the source of truth, this is observability.
type ToolUsage struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID      snowflake.ID `json:"user_id" gorm:"not null;index"`
	ToolName    string       `json:"tool_name" gorm:"type:text;not null"`
	CreditsUsed int64        `json:"credits_used" gorm:"not null"`
	Success     bool         `json:"success" gorm:"not null;default:false"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ToolUsage) TableName() string { return "tool_usages" }

// Recorder appends usage records. A write failure never propagates to the
// caller; a completed debit must stand even if its audit row is lost.
type Recorder interface {
	Record(ctx context.Context, userID snowflake.ID, toolName string, creditsUsed int64, success bool) *ToolUsage
}

// Reader serves the usage history, most recent first.
type Reader interface {
	History(ctx context.Context, userID snowflake.ID, limit int) ([]ToolUsage, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *ToolUsage) error
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]ToolUsage, error)
}
