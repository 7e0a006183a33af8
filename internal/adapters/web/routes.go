package web

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// SetupRoutes configures the application routes. Routes that reach an
// instance go through the rate limiter; metrics may be nil.
func SetupRoutes(app *fiber.App, handlers *Handlers, rateLimiter *RateLimiter, staticDir string, metrics http.Handler) {
	// Static assets
	app.Static("/static", staticDir)

	app.Get("/", handlers.Home)
	app.Post("/resolve", handlers.Resolve)
	app.Get("/healthz", handlers.Health)
	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	// Widget for https://{host}/notes/{noteId}
	app.Get("/embed/:host/:noteId", handlers.Embed)

	limit := rateLimiter.Middleware()
	app.Get("/embed/:host/:noteId/stats", limit, handlers.Stats)
	app.Get("/embed/:host/:noteId/comments", limit, handlers.Comments)
	app.Get("/embed/:host/:noteId/static", limit, handlers.Static)
	app.Get("/feed/:host/:noteId", limit, handlers.Feed)
}
