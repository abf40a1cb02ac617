package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rankforge/rankforge/internal/credit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) SelectCredits(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, bool, error) {
	var row struct {
		ID      snowflake.ID
		Credits int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, credits FROM users WHERE id = ? LIMIT 1`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	if row.ID == 0 {
		return 0, false, nil
	}
	return row.Credits, true, nil
}

func (r *repo) DebitConditional(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users
		 SET credits = credits - ?, updated_at = ?
		 WHERE id = ? AND credits >= ?`,
		amount,
		time.Now().UTC(),
		userID,
		amount,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users
		 SET credits = credits + ?, updated_at = ?
		 WHERE id = ?`,
		amount,
		time.Now().UTC(),
		userID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertPurchase(ctx context.Context, db *gorm.DB, purchase *domain.CreditPurchase) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_purchases (
			id, user_id, credits, amount, currency, status, session_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		purchase.ID,
		purchase.UserID,
		purchase.Credits,
		purchase.Amount,
		purchase.Currency,
		purchase.Status,
		purchase.SessionID,
		purchase.CreatedAt,
		purchase.UpdatedAt,
	).Error
}

func (r *repo) FindPurchaseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CreditPurchase, error) {
	var item domain.CreditPurchase
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, credits, amount, currency, status, session_id, created_at, updated_at
		 FROM credit_purchases
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindPurchaseBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*domain.CreditPurchase, error) {
	var item domain.CreditPurchase
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, credits, amount, currency, status, session_id, created_at, updated_at
		 FROM credit_purchases
		 WHERE session_id = ?
		 LIMIT 1`,
		sessionID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) TransitionPurchase(ctx context.Context, db *gorm.DB, id snowflake.ID, to domain.PurchaseStatus) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE credit_purchases
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC(),
		id,
		domain.PurchaseStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
