package router

import (
	"zepto-analytics/internal/handler"
	"zepto-analytics/internal/middleware"
	"zepto-analytics/internal/service"
	"zepto-analytics/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New builds the fiber app serving the dashboard API, health and metrics.
func New(dashService service.DashboardService, metrics *telemetry.Metrics, gatherer prometheus.Gatherer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Zepto Analytics v1.0",
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Metrics(metrics))
	app.Use(cors.New(cors.Config{AllowMethods: "GET,POST,HEAD,OPTIONS"}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "cache": dashService.CacheInfo()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := app.Group("/api/v1")
	handler.NewDashboardHandler(dashService).Register(api.Group("/dashboard"))

	return app
}
