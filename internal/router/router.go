package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campuslink/campuslink-api/internal/config"
	"github.com/campuslink/campuslink-api/internal/handler"
	"github.com/campuslink/campuslink-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DoubtHandler   *handler.DoubtHandler
	NoteHandler    *handler.NoteHandler
	ProfileHandler *handler.ProfileHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware)

	// Composers share a modest per-user write limit.
	writeLimit := middleware.RateLimit("compose", 20, time.Minute)
	protected.Post("/doubts", writeLimit)
	protected.Post("/doubts/:id/replies", writeLimit)
	protected.Post("/notes", writeLimit)

	if deps.DoubtHandler != nil {
		deps.DoubtHandler.Register(protected)
	}
	if deps.NoteHandler != nil {
		deps.NoteHandler.Register(protected)
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.Register(protected)
	}
}
