package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is the transport-level dedup row for provider webhook events.
// The (provider, provider_event_id) unique constraint is the only idempotency
// guard for events that have no purchase row to check, so the insert must
// happen before any side effect.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// Canonical event types produced by provider adapters.
const (
	EventTypeCheckoutCompleted = "checkout_completed"
	EventTypeCustomerCreated   = "customer_created"
	EventTypePaymentSucceeded  = "payment_succeeded"
	EventTypePaymentFailed     = "payment_failed"
)

// Checkout session modes.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// PaymentEvent is the canonical payment event parsed by adapters. The id
// hints come from whatever was stashed in provider metadata at checkout time
// and may be stale; the reconciler resolves them through the user resolver.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	Type            string
	Mode            string
	SessionID       string
	PurchaseID      snowflake.ID
	LocalUserID     snowflake.ID
	SubjectID       string
	CustomerID      string
	Credits         int64
	Amount          int64
	Currency        string
	OccurredAt      time.Time
	RawPayload      []byte
}

var (
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrPurchaseMissing       = errors.New("purchase_missing")
)

// PaymentAdapter verifies and parses one provider's webhook envelope.
// Verify must reject before Parse runs; an unverified payload has zero
// side effects.
type PaymentAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

// Service ingests raw webhook deliveries.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}
