package payment

import (
	"github.com/rankforge/rankforge/internal/config"
	"github.com/rankforge/rankforge/internal/payment/adapters"
	"github.com/rankforge/rankforge/internal/payment/adapters/stripe"
	"github.com/rankforge/rankforge/internal/payment/domain"
	"github.com/rankforge/rankforge/internal/payment/repository"
	"github.com/rankforge/rankforge/internal/payment/service"
	"github.com/rankforge/rankforge/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideRegistry(cfg config.Config, log *zap.Logger) *adapters.Registry {
	var providers []domain.PaymentAdapter

	if cfg.Payment.StripeWebhookSecret != "" {
		adapter, err := stripe.New(cfg.Payment.StripeWebhookSecret)
		if err != nil {
			log.Warn("stripe adapter disabled", zap.Error(err))
		} else {
			providers = append(providers, adapter)
		}
	} else {
		log.Warn("stripe webhook secret not configured, stripe webhooks disabled")
	}

	return adapters.NewRegistry(providers...)
}

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideRegistry),
	fx.Provide(service.New),
	fx.Provide(func(s *service.Service) webhook.Reconciler { return s }),
	fx.Provide(webhook.New),
	fx.Provide(func(s *webhook.Service) domain.Service { return s }),
)
