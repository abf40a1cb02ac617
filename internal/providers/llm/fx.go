package llm

import "go.uber.org/fx"

var Module = fx.Module("providers.llm",
	fx.Provide(func() Provider { return &StaticProvider{} }),
)
