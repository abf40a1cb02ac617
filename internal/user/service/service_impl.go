package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rankforge/rankforge/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) ResolveByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) ResolveByExternalID(ctx context.Context, subjectID string) (*domain.User, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, domain.ErrInvalidSubject
	}
	user, err := s.repo.FindByExternalID(ctx, s.db, subjectID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

// Reconcile resolves a user from whichever identifier a webhook happened to
// carry. The local id takes precedence; a stale local id falls through to the
// external subject id. Local ids are immutable, so on fallback the caller
// must continue with the returned record's id, not the hint.
func (s *Service) Reconcile(ctx context.Context, localHint snowflake.ID, externalHint string) (*domain.User, error) {
	if localHint != 0 {
		user, err := s.repo.FindByID(ctx, s.db, localHint)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}

	externalHint = strings.TrimSpace(externalHint)
	if externalHint != "" {
		user, err := s.repo.FindByExternalID(ctx, s.db, externalHint)
		if err != nil {
			return nil, err
		}
		if user != nil {
			s.log.Info("resolved user via external id fallback",
				zap.String("local_hint", localHint.String()),
				zap.String("user_id", user.ID.String()),
			)
			return user, nil
		}
	}

	return nil, domain.ErrNotFound
}

func (s *Service) HandleLifecycleEvent(ctx context.Context, event domain.LifecycleEvent) error {
	subjectID := strings.TrimSpace(event.SubjectID)
	if subjectID == "" {
		return domain.ErrInvalidSubject
	}

	switch event.Type {
	case domain.LifecycleUserCreated:
		return s.createUser(ctx, subjectID, event)
	case domain.LifecycleUserUpdated:
		return s.updateUser(ctx, subjectID, event)
	case domain.LifecycleUserDeleted:
		return s.repo.DeleteByExternalID(ctx, s.db, subjectID)
	default:
		return domain.ErrInvalidEvent
	}
}

func (s *Service) createUser(ctx context.Context, subjectID string, event domain.LifecycleEvent) error {
	email := strings.TrimSpace(event.Email)
	if email == "" {
		return domain.ErrInvalidEmail
	}

	existing, err := s.repo.FindByExternalID(ctx, s.db, subjectID)
	if err != nil {
		return err
	}
	if existing != nil {
		// Provider retried the created event; treat as a profile refresh.
		return s.repo.UpdateProfile(ctx, s.db, subjectID, email, event.FirstName, event.LastName, event.ImageURL)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:         s.genID.Generate(),
		ExternalID: &subjectID,
		Email:      email,
		FirstName:  strings.TrimSpace(event.FirstName),
		LastName:   strings.TrimSpace(event.LastName),
		ImageURL:   strings.TrimSpace(event.ImageURL),
		Credits:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return s.repo.Insert(ctx, s.db, user)
}

func (s *Service) updateUser(ctx context.Context, subjectID string, event domain.LifecycleEvent) error {
	existing, err := s.repo.FindByExternalID(ctx, s.db, subjectID)
	if err != nil {
		return err
	}
	if existing == nil {
		s.log.Warn("lifecycle update for unknown subject", zap.String("subject_id", subjectID))
		return nil
	}

	email := strings.TrimSpace(event.Email)
	if email == "" {
		email = existing.Email
	}
	return s.repo.UpdateProfile(ctx, s.db, subjectID, email, event.FirstName, event.LastName, event.ImageURL)
}

func (s *Service) LinkProviderCustomer(ctx context.Context, userID snowflake.ID, customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if userID == 0 || customerID == "" {
		return domain.ErrNotFound
	}
	return s.repo.SetProviderCustomerID(ctx, s.db, userID, customerID)
}
