package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rankforge/rankforge/internal/usage/domain"
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

var (
	_ domain.Recorder = (*Service)(nil)
	_ domain.Reader   = (*Service)(nil)
)

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("usage.recorder"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, userID snowflake.ID, toolName string, creditsUsed int64, success bool) *domain.ToolUsage {
	record := &domain.ToolUsage{
		ID:          s.genID.Generate(),
		UserID:      userID,
		ToolName:    toolName,
		CreditsUsed: creditsUsed,
		Success:     success,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		s.log.Error("failed to append tool usage record",
			zap.String("user_id", userID.String()),
			zap.String("tool", toolName),
			zap.Int64("credits_used", creditsUsed),
			zap.Error(err),
		)
		return nil
	}
	return record
}

func (s *Service) History(ctx context.Context, userID snowflake.ID, limit int) ([]domain.ToolUsage, error) {
	return s.repo.ListByUser(ctx, s.db, userID, limit)
}
