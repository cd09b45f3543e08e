package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldtrack/internal/authorization"
	"github.com/smallbiznis/fieldtrack/internal/clock"
	"github.com/smallbiznis/fieldtrack/internal/config"
	"github.com/smallbiznis/fieldtrack/internal/events"
	"github.com/smallbiznis/fieldtrack/internal/logger"
	"github.com/smallbiznis/fieldtrack/internal/migration"
	"github.com/smallbiznis/fieldtrack/internal/observability/metrics"
	"github.com/smallbiznis/fieldtrack/internal/payroll"
	"github.com/smallbiznis/fieldtrack/internal/progress/cascade"
	"github.com/smallbiznis/fieldtrack/internal/project"
	"github.com/smallbiznis/fieldtrack/internal/server"
	"github.com/smallbiznis/fieldtrack/internal/tenant"
	"github.com/smallbiznis/fieldtrack/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,

		tenant.Module,
		authorization.Module,
		events.Module,
		cascade.Module,
		project.Module,
		payroll.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
