package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rankforge/rankforge/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.ToolUsage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tool_usages (
			id, user_id, tool_name, credits_used, success, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.ToolName,
		record.CreditsUsed,
		record.Success,
		record.CreatedAt,
	).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]domain.ToolUsage, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []domain.ToolUsage
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, tool_name, credits_used, success, created_at
		 FROM tool_usages
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		userID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
