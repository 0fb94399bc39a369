// Package httpapi exposes the collector's runtime status over HTTP while the
// recurring collection modes are active.
package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/desastrosos/precipwatch/internal/collect"
)

// StatusSource reports the most recent completed collection cycle.
type StatusSource interface {
	LastCycle() (collect.CycleStatus, bool)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, source StatusSource) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/status", func(c *fiber.Ctx) error {
		status, ok := source.LastCycle()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no collection cycle has completed yet")
		}
		return c.JSON(status)
	})
}
