package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-marketplace/internal/api/http/handlers"
	"github.com/spec-kit/asset-marketplace/internal/auth"
	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/registry"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Assets         *handlers.AssetsHandler
	Market         *handlers.MarketHandler
	AuthMiddleware *auth.AuthMiddleware
	Gate           registry.Gate
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Get("/stats/holders", cfg.Users.HolderCount)
	app.Get("/identities/:identity/holdings", cfg.Users.HoldingCount)
	app.Get("/identities/:identity/balance", cfg.Users.Balance)
	app.Get("/assets/lookup", cfg.Assets.Lookup)
	app.Get("/assets/:id", cfg.Assets.Get)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Post("/users", cfg.Users.Register)
	protected.Get("/users/me", cfg.Users.Me)
	protected.Get("/users/:id/transactions", cfg.Users.Transactions)
	protected.Get("/users/:id/assets", cfg.Users.Holdings)

	protected.Post("/assets", cfg.Assets.Mint)
	protected.Delete("/assets/:id", auth.RequireCapability(cfg.Gate, domain.CapabilityAdmin), cfg.Assets.Remove)
	protected.Post("/assets/:id/listing", cfg.Assets.CreateListing)
	protected.Delete("/assets/:id/listing", cfg.Assets.RemoveListing)
	protected.Post("/assets/:id/bids", cfg.Assets.Bid)
	protected.Post("/assets/:id/purchase", cfg.Market.Purchase)
	protected.Post("/deposits", cfg.Market.Deposit)
}
