package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, subjectID string) (*User, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, subjectID string, email, firstName, lastName, imageURL string) error
	DeleteByExternalID(ctx context.Context, db *gorm.DB, subjectID string) error
	SetProviderCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string) error
}
