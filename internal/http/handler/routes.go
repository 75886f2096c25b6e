package handler

import (
	"database/sql"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shannon/docs"
	"shannon/internal/http/middleware"
	"shannon/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. db may be nil
// when signal history is disabled; gatherer backs /metrics.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.SignalService, gatherer prometheus.Gatherer) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	signals := app.Group("/signals", middleware.NoStore())
	signals.Get("/", ScanSignals(svc))
	signals.Get("/history", SignalHistory(svc))
	signals.Get("/:pair/latest", LatestSignal(svc))

	app.Get("/pairs", ListPairs(svc))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})
}
