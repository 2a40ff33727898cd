package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SystemPurgeCacheAction clears the stored caches and runs each invalidate hook.
func SystemPurgeCacheAction(invalidate ...func()) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		rowsAffected, err := cache.PurgeAllCaches(ctx.DB())
		if err != nil {
			ctx.Logger.Error("Failed to clear generic_cache", slog.Any("error", err))
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to clear caches"})
		}
		for _, fn := range invalidate {
			fn()
		}

		ctx.Logger.Info("Caches purged", slog.Any("rows", rowsAffected))
		return ctx.JSON(fiber.Map{"success": true})
	}
}

// MetricsAction exposes the collectors registered on gatherer.
func MetricsAction(gatherer prometheus.Gatherer) func(*cartridge.Context) error {
	handler := adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return func(ctx *cartridge.Context) error {
		return handler(ctx.Ctx)
	}
}
