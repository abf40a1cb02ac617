package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rankforge/rankforge/internal/credit/domain"
	"github.com/rankforge/rankforge/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("credit.ledger"),
		genID:   p.GenID,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Balance(ctx context.Context, userID snowflake.ID) (int64, error) {
	if userID == 0 {
		return 0, domain.ErrNotFound
	}
	credits, found, err := s.repo.SelectCredits(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, domain.ErrNotFound
	}
	return credits, nil
}

func (s *Service) HasSufficientCredits(ctx context.Context, userID snowflake.ID, required int64) (bool, error) {
	if required <= 0 {
		return false, domain.ErrInvalidAmount
	}
	credits, found, err := s.repo.SelectCredits(ctx, s.db, userID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return credits >= required, nil
}

// Debit atomically checks and decrements the balance. The check and the
// decrement are one conditional update, so two concurrent debits against a
// balance that covers only one cannot both succeed.
func (s *Service) Debit(ctx context.Context, userID snowflake.ID, amount int64) (int64, error) {
	if userID == 0 {
		return 0, domain.ErrNotFound
	}
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	changed, err := s.repo.DebitConditional(ctx, s.db, userID, amount)
	if err != nil {
		return 0, err
	}
	if !changed {
		// Either the user does not exist or the balance was short.
		_, found, err := s.repo.SelectCredits(ctx, s.db, userID)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrInsufficientCredits
	}

	balance, _, err := s.repo.SelectCredits(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordDebit(amount)
	return balance, nil
}

func (s *Service) Credit(ctx context.Context, userID snowflake.ID, amount int64) (int64, error) {
	if userID == 0 {
		return 0, domain.ErrNotFound
	}
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	changed, err := s.repo.Increment(ctx, s.db, userID, amount)
	if err != nil {
		return 0, err
	}
	if !changed {
		return 0, domain.ErrNotFound
	}

	balance, _, err := s.repo.SelectCredits(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordGrant(amount)
	return balance, nil
}

func (s *Service) CreatePending(ctx context.Context, req domain.CreatePurchaseRequest) (*domain.CreditPurchase, error) {
	if req.UserID == 0 {
		return nil, domain.ErrNotFound
	}
	pkg, ok := domain.PackageByCode(strings.TrimSpace(req.PackageCode))
	if !ok {
		return nil, domain.ErrInvalidPackage
	}

	now := time.Now().UTC()
	purchase := &domain.CreditPurchase{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		Credits:   pkg.Credits,
		Amount:    pkg.Amount,
		Currency:  pkg.Currency,
		Status:    domain.PurchaseStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sessionID := strings.TrimSpace(req.SessionID); sessionID != "" {
		purchase.SessionID = &sessionID
	}

	if err := s.repo.InsertPurchase(ctx, s.db, purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.CreditPurchase, error) {
	if id == 0 {
		return nil, domain.ErrPurchaseNotFound
	}
	purchase, err := s.repo.FindPurchaseByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, domain.ErrPurchaseNotFound
	}
	return purchase, nil
}

func (s *Service) GetBySessionID(ctx context.Context, sessionID string) (*domain.CreditPurchase, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrPurchaseNotFound
	}
	purchase, err := s.repo.FindPurchaseBySessionID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, domain.ErrPurchaseNotFound
	}
	return purchase, nil
}

func (s *Service) Complete(ctx context.Context, id snowflake.ID) (bool, error) {
	return s.repo.TransitionPurchase(ctx, s.db, id, domain.PurchaseStatusCompleted)
}

func (s *Service) Fail(ctx context.Context, id snowflake.ID) (bool, error) {
	return s.repo.TransitionPurchase(ctx, s.db, id, domain.PurchaseStatusFailed)
}
