package gate

import "go.uber.org/fx"

var Module = fx.Module("credit.gate",
	fx.Provide(New),
)
