package usage

import (
	"github.com/rankforge/rankforge/internal/usage/domain"
	"github.com/rankforge/rankforge/internal/usage/repository"
	"github.com/rankforge/rankforge/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.recorder",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s *service.Service) domain.Recorder { return s }),
	fx.Provide(func(s *service.Service) domain.Reader { return s }),
)
