package credit

import (
	"github.com/rankforge/rankforge/internal/credit/domain"
	"github.com/rankforge/rankforge/internal/credit/repository"
	"github.com/rankforge/rankforge/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s *service.Service) domain.Ledger { return s }),
	fx.Provide(func(s *service.Service) domain.Purchases { return s }),
)
