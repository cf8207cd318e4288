package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expenso/internal/clock"
	"github.com/smallbiznis/expenso/internal/config"
	"github.com/smallbiznis/expenso/internal/migration"
	"github.com/smallbiznis/expenso/internal/observability"
	"github.com/smallbiznis/expenso/internal/server"
	"github.com/smallbiznis/expenso/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
