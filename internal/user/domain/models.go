// Package domain contains the user model and the identity resolver contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is the local account record. ExternalID is the identity provider's
// subject id; it is unique and immutable once set. ProviderCustomerID is the
// payment provider's customer id, linked on first purchase. Credits is the
// authoritative balance and is never negative.
type User struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	ExternalID         *string      `json:"external_id" gorm:"type:text;uniqueIndex"`
	ProviderCustomerID *string      `json:"provider_customer_id" gorm:"type:text;uniqueIndex"`
	Email              string       `json:"email" gorm:"type:text;not null"`
	FirstName          string       `json:"first_name" gorm:"type:text;not null;default:''"`
	LastName           string       `json:"last_name" gorm:"type:text;not null;default:''"`
	ImageURL           string       `json:"image_url" gorm:"type:text;not null;default:''"`
	Credits            int64        `json:"credits" gorm:"not null;default:0"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (User) TableName() string { return "users" }

const (
	LifecycleUserCreated = "user.created"
	LifecycleUserUpdated = "user.updated"
	LifecycleUserDeleted = "user.deleted"
)

// LifecycleEvent is the identity provider's user lifecycle payload.
type LifecycleEvent struct {
	Type      string `json:"type"`
	SubjectID string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl"`
}
