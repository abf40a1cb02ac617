package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rankforge/rankforge/internal/payment/adapters"
	"github.com/rankforge/rankforge/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Reconciler applies a verified, parsed payment event to local state.
type Reconciler interface {
	ProcessEvent(ctx context.Context, event *domain.PaymentEvent, payload []byte) error
}

type Params struct {
	fx.In

	Log        *zap.Logger
	Registry   *adapters.Registry
	Reconciler Reconciler
}

// Service is the webhook front door: it picks the provider adapter, verifies
// the payload signature, parses the envelope and hands the canonical event to
// the reconciler. Nothing mutates state before Verify succeeds.
type Service struct {
	log        *zap.Logger
	registry   *adapters.Registry
	reconciler Reconciler
}

func New(p Params) *Service {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		registry:   p.Registry,
		reconciler: p.Reconciler,
	}
}

var _ domain.Service = (*Service)(nil)

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	adapter, ok := s.registry.Get(provider)
	if !ok {
		return domain.ErrProviderNotFound
	}

	if !json.Valid(payload) {
		return domain.ErrInvalidPayload
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature verification failed",
			zap.String("provider", adapter.Provider()),
			zap.Error(err),
		)
		return domain.ErrInvalidSignature
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			// Unrecognized but authentic events are acknowledged so the
			// provider stops redelivering them.
			return nil
		}
		return err
	}

	return s.reconciler.ProcessEvent(ctx, event, payload)
}
