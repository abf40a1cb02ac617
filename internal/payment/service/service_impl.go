package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/rankforge/rankforge/internal/credit/domain"
	"github.com/rankforge/rankforge/internal/metrics"
	"github.com/rankforge/rankforge/internal/notification"
	paymentdomain "github.com/rankforge/rankforge/internal/payment/domain"
	userdomain "github.com/rankforge/rankforge/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	Users      userdomain.Service
	Ledger     creditdomain.Ledger
	Purchases  creditdomain.Purchases
	Dispatcher notification.Dispatcher `optional:"true"`
	Metrics    *metrics.Metrics        `optional:"true"`
}

// Service reconciles provider payment events into ledger mutations exactly
// once. The checkout path is idempotent through the purchase status
// transition; the direct payment_intent path leans on the event-record dedup
// only, which is a narrower guarantee (see ProcessEvent).
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	users      userdomain.Service
	ledger     creditdomain.Ledger
	purchases  creditdomain.Purchases
	dispatcher notification.Dispatcher
	metrics    *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.reconciler"),
		genID:      p.GenID,
		repo:       p.Repo,
		users:      p.Users,
		ledger:     p.Ledger,
		purchases:  p.Purchases,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
	}
}

func (s *Service) ProcessEvent(ctx context.Context, event *paymentdomain.PaymentEvent, payload []byte) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if event.Provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	event.ProviderEventID = strings.TrimSpace(event.ProviderEventID)
	if event.ProviderEventID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	now := time.Now().UTC()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.handleEvent(ctx, event); err != nil {
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, now); err != nil {
		// The side effects committed; refusing the ack now would only
		// trigger a retry that the idempotency guards will absorb.
		s.log.Warn("failed to mark payment event processed",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.Error(err),
		)
	}

	s.metrics.RecordPaymentEvent(event.Provider, event.Type)
	return nil
}

func (s *Service) handleEvent(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	switch event.Type {
	case paymentdomain.EventTypeCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case paymentdomain.EventTypeCustomerCreated:
		return s.handleCustomerCreated(ctx, event)
	case paymentdomain.EventTypePaymentSucceeded:
		return s.handleDirectPayment(ctx, event)
	case paymentdomain.EventTypePaymentFailed:
		return s.handlePaymentFailed(ctx, event)
	default:
		// Providers add event types over time; unrecognized ones are
		// acknowledged without effect.
		s.log.Info("ignoring unsupported payment event type", zap.String("type", event.Type))
		return nil
	}
}

// handleCheckoutCompleted drives the idempotent credit grant. The purchase
// status is the idempotency key: the pending->completed transition happens
// exactly once, and everything after that transition is acknowledged even
// when it fails, because the authoritative state has already moved.
func (s *Service) handleCheckoutCompleted(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.Mode == paymentdomain.ModeSubscription {
		// Subscriptions grant credits through their own lifecycle events,
		// not at checkout time.
		s.log.Info("subscription checkout completed, deferring to subscription lifecycle",
			zap.String("session_id", event.SessionID),
		)
		return nil
	}

	purchase, err := s.locatePurchase(ctx, event)
	if err != nil {
		return err
	}

	if purchase.Status == creditdomain.PurchaseStatusCompleted {
		return paymentdomain.ErrEventAlreadyProcessed
	}

	won, err := s.purchases.Complete(ctx, purchase.ID)
	if err != nil {
		// No side effect has occurred; the provider should retry.
		return err
	}
	if !won {
		// A concurrent delivery won the transition; its delivery carries
		// the side effects. A success arriving after a failure is a
		// provider anomaly worth an operator's attention either way.
		if purchase.Status == creditdomain.PurchaseStatusFailed {
			s.log.Warn("checkout completion for purchase already marked failed",
				zap.String("purchase_id", purchase.ID.String()),
			)
		}
		return paymentdomain.ErrEventAlreadyProcessed
	}

	// Point of no return. Failures below are logged for operator follow-up
	// but the event is acknowledged: the purchase row has already moved and
	// a provider retry could not help.
	user, err := s.users.Reconcile(ctx, purchase.UserID, event.SubjectID)
	if err != nil {
		s.logInconsistency("user unresolved after purchase completion", purchase.ID, err)
		return nil
	}

	if _, err := s.ledger.Credit(ctx, user.ID, purchase.Credits); err != nil {
		s.logInconsistency("ledger credit failed after purchase completion", purchase.ID, err)
		return nil
	}

	if event.CustomerID != "" {
		if err := s.users.LinkProviderCustomer(ctx, user.ID, event.CustomerID); err != nil {
			s.log.Warn("failed to link provider customer id",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
	}

	if s.dispatcher != nil {
		s.dispatcher.DispatchPurchaseConfirmation(ctx, notification.PurchaseConfirmation{
			Email:     user.Email,
			FirstName: user.FirstName,
			Credits:   purchase.Credits,
			Amount:    purchase.Amount,
			Currency:  purchase.Currency,
		})
	}

	return nil
}

func (s *Service) locatePurchase(ctx context.Context, event *paymentdomain.PaymentEvent) (*creditdomain.CreditPurchase, error) {
	if event.PurchaseID != 0 {
		purchase, err := s.purchases.GetByID(ctx, event.PurchaseID)
		if err == nil {
			return purchase, nil
		}
		if !errors.Is(err, creditdomain.ErrPurchaseNotFound) {
			return nil, err
		}
	}

	if event.SessionID != "" {
		purchase, err := s.purchases.GetBySessionID(ctx, event.SessionID)
		if err == nil {
			return purchase, nil
		}
		if !errors.Is(err, creditdomain.ErrPurchaseNotFound) {
			return nil, err
		}
	}

	// No side effect yet; surfacing an error lets the provider retry, which
	// covers a webhook racing the checkout insert.
	s.log.Error("no credit purchase found for checkout session",
		zap.String("purchase_hint", event.PurchaseID.String()),
		zap.String("session_id", event.SessionID),
	)
	return nil, paymentdomain.ErrPurchaseMissing
}

// handleCustomerCreated carries no money and must never make the provider
// retry forever: an unknown user is logged, not raised.
func (s *Service) handleCustomerCreated(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.CustomerID == "" {
		return nil
	}

	user, err := s.users.Reconcile(ctx, event.LocalUserID, event.SubjectID)
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			s.log.Info("customer created for unknown user",
				zap.String("customer_id", event.CustomerID),
				zap.String("local_hint", event.LocalUserID.String()),
			)
			return nil
		}
		return err
	}

	return s.users.LinkProviderCustomer(ctx, user.ID, event.CustomerID)
}

// handleDirectPayment credits a payment that did not flow through a checkout
// session. There is no purchase row to guard this path; idempotency rests
// solely on the provider event-id dedup recorded before dispatch, which is a
// narrower guarantee than the checkout path and is why the metadata must
// carry the amount explicitly.
func (s *Service) handleDirectPayment(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.Credits <= 0 || (event.LocalUserID == 0 && event.SubjectID == "") {
		// Payments attached to checkout sessions are granted by the
		// session event; nothing to do here.
		return nil
	}

	user, err := s.users.Reconcile(ctx, event.LocalUserID, event.SubjectID)
	if err != nil {
		return err
	}

	if _, err := s.ledger.Credit(ctx, user.ID, event.Credits); err != nil {
		return err
	}

	if event.CustomerID != "" {
		if err := s.users.LinkProviderCustomer(ctx, user.ID, event.CustomerID); err != nil {
			s.log.Warn("failed to link provider customer id",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	if event.PurchaseID != 0 {
		if _, err := s.purchases.Fail(ctx, event.PurchaseID); err != nil {
			s.log.Warn("failed to mark purchase failed",
				zap.String("purchase_id", event.PurchaseID.String()),
				zap.Error(err),
			)
		}
	}
	s.log.Info("payment failed",
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("purchase_id", event.PurchaseID.String()),
	)
	return nil
}

func (s *Service) logInconsistency(msg string, purchaseID snowflake.ID, err error) {
	s.metrics.RecordInconsistency()
	s.log.Error(msg,
		zap.String("purchase_id", purchaseID.String()),
		zap.Error(err),
	)
}
