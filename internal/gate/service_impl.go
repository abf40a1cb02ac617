package gate

import (
	"context"
	"errors"
	"strings"

	creditdomain "github.com/rankforge/rankforge/internal/credit/domain"
	"github.com/rankforge/rankforge/internal/gate/domain"
	"github.com/rankforge/rankforge/internal/metrics"
	usagedomain "github.com/rankforge/rankforge/internal/usage/domain"
	userdomain "github.com/rankforge/rankforge/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Resolver userdomain.Service
	Ledger   creditdomain.Ledger
	Recorder usagedomain.Recorder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	resolver userdomain.Service
	ledger   creditdomain.Ledger
	recorder usagedomain.Recorder
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("credit.gate"),
		resolver: p.Resolver,
		ledger:   p.Ledger,
		recorder: p.Recorder,
		metrics:  p.Metrics,
	}
}

// Charge runs one guarded tool call. Any failure before the debit aborts
// with no side effects; once the debit commits the attempt is always
// recorded, whether the tool succeeds or not.
func (s *Service) Charge(ctx context.Context, subjectID, toolName string, units int64, fn domain.ToolFunc) (any, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, domain.ErrUnauthenticated
	}

	cost, err := domain.Cost(toolName, units)
	if err != nil {
		return nil, err
	}

	user, err := s.resolver.ResolveByExternalID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) || errors.Is(err, userdomain.ErrInvalidSubject) {
			return nil, domain.ErrUserNotProvisioned
		}
		return nil, err
	}

	if _, err := s.ledger.Debit(ctx, user.ID, cost); err != nil {
		if errors.Is(err, creditdomain.ErrNotFound) {
			return nil, domain.ErrUserNotProvisioned
		}
		return nil, err
	}

	result, toolErr := fn(ctx)

	success := toolErr == nil
	s.recorder.Record(ctx, user.ID, toolName, cost, success)
	s.metrics.RecordToolInvocation(toolName, success)

	if toolErr != nil {
		s.log.Warn("tool invocation failed after debit",
			zap.String("user_id", user.ID.String()),
			zap.String("tool", toolName),
			zap.Int64("credits", cost),
			zap.Error(toolErr),
		)
		return nil, toolErr
	}
	return result, nil
}
