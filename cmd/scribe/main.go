package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/scribehq/scribe/internal/catalog"
	"github.com/scribehq/scribe/internal/clock"
	"github.com/scribehq/scribe/internal/config"
	"github.com/scribehq/scribe/internal/entitlement"
	"github.com/scribehq/scribe/internal/generation"
	"github.com/scribehq/scribe/internal/observability"
	"github.com/scribehq/scribe/internal/plan"
	"github.com/scribehq/scribe/internal/push"
	"github.com/scribehq/scribe/internal/quota"
	"github.com/scribehq/scribe/internal/ratelimit"
	"github.com/scribehq/scribe/internal/seed"
	"github.com/scribehq/scribe/internal/server"
	"github.com/scribehq/scribe/internal/subscription"
	"github.com/scribehq/scribe/internal/usage"
	"github.com/scribehq/scribe/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		push.Module,
		ratelimit.Module,

		// Functional domains
		plan.Module,
		catalog.Module,
		subscription.Module,
		entitlement.Module,
		usage.Module,
		quota.Module,
		generation.Module,

		fx.Invoke(bootstrap),
		server.Module,
	)
	app.Run()
}

// bootstrap migrates the schema and seeds the plan catalog and service
// registry before the HTTP server starts accepting traffic.
func bootstrap(dbConn *gorm.DB, node *snowflake.Node) error {
	if err := seed.Migrate(dbConn); err != nil {
		return err
	}
	if err := seed.EnsurePlans(dbConn, node); err != nil {
		return err
	}
	return seed.EnsureServices(dbConn, node)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
