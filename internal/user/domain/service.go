package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound            = errors.New("user_not_found")
	ErrInvalidSubject      = errors.New("invalid_subject")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidEvent        = errors.New("invalid_lifecycle_event")
	ErrExternalIDImmutable = errors.New("external_id_immutable")
)

// Resolver maps identifiers from either id space to the authoritative local
// user record. Reconcile tries the local id first and falls back to the
// external subject id; it never fabricates a user. Payment flows depend on
// that: a missing user there is a data-integrity error to surface, not mask.
type Resolver interface {
	ResolveByID(ctx context.Context, id snowflake.ID) (*User, error)
	ResolveByExternalID(ctx context.Context, subjectID string) (*User, error)
	Reconcile(ctx context.Context, localHint snowflake.ID, externalHint string) (*User, error)
}

// Provisioner consumes identity-provider lifecycle events.
type Provisioner interface {
	HandleLifecycleEvent(ctx context.Context, event LifecycleEvent) error
}

// Service combines resolution and provisioning plus customer-id linkage.
type Service interface {
	Resolver
	Provisioner
	LinkProviderCustomer(ctx context.Context, userID snowflake.ID, customerID string) error
}
