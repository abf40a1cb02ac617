package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/rankforge/rankforge/internal/config"
	"github.com/rankforge/rankforge/internal/credit"
	"github.com/rankforge/rankforge/internal/gate"
	"github.com/rankforge/rankforge/internal/logger"
	"github.com/rankforge/rankforge/internal/metrics"
	"github.com/rankforge/rankforge/internal/migration"
	"github.com/rankforge/rankforge/internal/notification"
	"github.com/rankforge/rankforge/internal/payment"
	"github.com/rankforge/rankforge/internal/providers/email"
	"github.com/rankforge/rankforge/internal/providers/llm"
	"github.com/rankforge/rankforge/internal/ratelimit"
	"github.com/rankforge/rankforge/internal/server"
	"github.com/rankforge/rankforge/internal/usage"
	"github.com/rankforge/rankforge/internal/user"
	"github.com/rankforge/rankforge/pkg/db"
	"go.uber.org/fx"
)

func main() {
	fx.New(appOptions()...).Run()
}

func appOptions() []fx.Option {
	return []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		user.Module,
		credit.Module,
		usage.Module,
		gate.Module,
		payment.Module,
		email.Module,
		notification.Module,
		llm.Module,
		ratelimit.Module,

		server.Module,
	}
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
