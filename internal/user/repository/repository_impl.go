package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rankforge/rankforge/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (
			id, external_id, provider_customer_id, email, first_name, last_name,
			image_url, credits, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.ExternalID,
		user.ProviderCustomerID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ImageURL,
		user.Credits,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var item domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, provider_customer_id, email, first_name, last_name,
			image_url, credits, created_at, updated_at
		 FROM users
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

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, subjectID string) (*domain.User, error) {
	var item domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, provider_customer_id, email, first_name, last_name,
			image_url, credits, created_at, updated_at
		 FROM users
		 WHERE external_id = ?
		 LIMIT 1`,
		subjectID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateProfile(ctx context.Context, db *gorm.DB, subjectID string, email, firstName, lastName, imageURL string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users
		 SET email = ?, first_name = ?, last_name = ?, image_url = ?, updated_at = ?
		 WHERE external_id = ?`,
		email,
		firstName,
		lastName,
		imageURL,
		time.Now().UTC(),
		subjectID,
	).Error
}

func (r *repo) DeleteByExternalID(ctx context.Context, db *gorm.DB, subjectID string) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM users WHERE external_id = ?`,
		subjectID,
	).Error
}

func (r *repo) SetProviderCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users
		 SET provider_customer_id = ?, updated_at = ?
		 WHERE id = ? AND (provider_customer_id IS NULL OR provider_customer_id = ?)`,
		customerID,
		time.Now().UTC(),
		id,
		customerID,
	).Error
}
