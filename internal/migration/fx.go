package migration

import (
	"github.com/rankforge/rankforge/internal/config"
	creditdomain "github.com/rankforge/rankforge/internal/credit/domain"
	paymentdomain "github.com/rankforge/rankforge/internal/payment/domain"
	usagedomain "github.com/rankforge/rankforge/internal/usage/domain"
	userdomain "github.com/rankforge/rankforge/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned SQL migrations target postgres; sqlite is the
		// local development dialect and derives its schema from the models.
		if cfg.DBType == "sqlite" {
			return conn.AutoMigrate(
				&userdomain.User{},
				&creditdomain.CreditPurchase{},
				&usagedomain.ToolUsage{},
				&paymentdomain.EventRecord{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
