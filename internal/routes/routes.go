package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/platewatch/platewatch-backend/internal/config"
	"github.com/platewatch/platewatch-backend/internal/handlers"
	"github.com/platewatch/platewatch-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	plateHandler *handlers.PlateHandler,
	reportHandler *handlers.ReportHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Plates — leaderboards are public
	api.Get("/plates", plateHandler.List)
	api.Get("/plates/:id", plateHandler.Get)

	// Analyze is billed per call upstream, so it gets its own 10 req/min cap
	api.Post("/plates/analyze", limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}), plateHandler.Analyze)

	// Reports — submission accepts an optional identity; the handler enforces
	// the anonymous-allowed policy from config
	api.Post("/reports", middleware.OptionalJWT(cfg), reportHandler.Create)
	api.Get("/reports", reportHandler.Recent)

	api.Get("/brands/stats", reportHandler.BrandStats)
	api.Get("/locations/stats", reportHandler.LocationStats)
}
