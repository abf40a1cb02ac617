package user

import (
	"github.com/rankforge/rankforge/internal/user/repository"
	"github.com/rankforge/rankforge/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
