// Package notification is the best-effort side channel fired after a credit
// grant commits. A failure here is logged and dropped; it never unwinds the
// grant and never blocks the webhook acknowledgment.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/rankforge/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PurchaseConfirmation carries the data for a purchase-confirmation email.
type PurchaseConfirmation struct {
	Email     string
	FirstName string
	Credits   int64
	Amount    int64
	Currency  string
}

type Dispatcher interface {
	DispatchPurchaseConfirmation(ctx context.Context, msg PurchaseConfirmation)
}

type Params struct {
	fx.In

	Log   *zap.Logger
	Email email.Provider
}

type Service struct {
	log   *zap.Logger
	email email.Provider
}

func New(p Params) Dispatcher {
	return &Service{
		log:   p.Log.Named("notification.dispatcher"),
		email: p.Email,
	}
}

const dispatchTimeout = 10 * time.Second

// DispatchPurchaseConfirmation sends asynchronously. The caller's context is
// not reused: the webhook response must not wait on SMTP.
func (s *Service) DispatchPurchaseConfirmation(ctx context.Context, msg PurchaseConfirmation) {
	if msg.Email == "" {
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		data := map[string]any{
			"first_name": msg.FirstName,
			"credits":    msg.Credits,
			"amount":     formatAmount(msg.Amount),
			"currency":   msg.Currency,
		}
		if err := s.email.SendTemplate(sendCtx, []string{msg.Email}, "purchase_confirmation", data); err != nil {
			s.log.Warn("failed to send purchase confirmation",
				zap.String("email", msg.Email),
				zap.Error(err),
			)
		}
	}()
}

func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

var Module = fx.Module("notification",
	fx.Provide(New),
)
