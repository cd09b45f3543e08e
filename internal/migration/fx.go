package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldtrack/internal/config"
	"github.com/smallbiznis/fieldtrack/internal/events"
	payrolldomain "github.com/smallbiznis/fieldtrack/internal/payroll/domain"
	projectdomain "github.com/smallbiznis/fieldtrack/internal/project/domain"
	"github.com/smallbiznis/fieldtrack/internal/seed"
	tenantdomain "github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, catalog config.SeedCatalog, node *snowflake.Node) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are local-development conveniences; the
			// versioned SQL only targets postgres.
			if err := conn.AutoMigrate(
				&tenantdomain.Country{},
				&tenantdomain.Role{},
				&tenantdomain.Employee{},
				&tenantdomain.Assignment{},
				&projectdomain.Project{},
				&projectdomain.Site{},
				&projectdomain.Task{},
				&events.TaskEvent{},
				&payrolldomain.SalaryStructure{},
				&payrolldomain.WorkCompletionRecord{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsureRoleCatalog(conn, node); err != nil {
			return err
		}
		for _, country := range catalog.Countries {
			if err := seed.EnsureCountry(conn, node, country.Code, country.Name); err != nil {
				return err
			}
		}
		return nil
	}),
)
