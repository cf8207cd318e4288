package migration

import (
	"github.com/smallbiznis/expenso/internal/config"
	expensedomain "github.com/smallbiznis/expenso/internal/expense/domain"
	orgdomain "github.com/smallbiznis/expenso/internal/org/domain"
	policydomain "github.com/smallbiznis/expenso/internal/policy/domain"
	"github.com/smallbiznis/expenso/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB, log); err != nil {
				return err
			}
		} else {
			// mysql and the sqlite dev path have no versioned migrations yet.
			if err := conn.AutoMigrate(
				&orgdomain.Company{},
				&orgdomain.Team{},
				&orgdomain.HierarchyLevel{},
				&orgdomain.User{},
				&policydomain.Policy{},
				&policydomain.ApprovalStep{},
				&expensedomain.Expense{},
				&expensedomain.Approval{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedSampleData {
			return seed.EnsureSampleCompany(conn)
		}
		return nil
	}),
)
