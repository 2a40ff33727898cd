package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "vitrine/api/v1"
	"vitrine/internal/config"
	"vitrine/internal/http"
	"vitrine/internal/http/middleware"
	"vitrine/internal/users"
)

// publicCORSConfig is shared by the functions, which are called cross-origin by the site.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent, X-Client-Info, apikey",
}

// MountAppRoutes returns the route mount function for services.
func MountAppRoutes(services *Services) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		mountRoutes(srv, services)
	}
}

func mountRoutes(srv *cartridge.Server, services *Services) {
	cfg := config.GetConfig()
	db := srv.GetDBManager().GetConnection()
	logger := srv.GetLogger()

	// Rate limiting would interfere with tests outside production
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Stricter rate limiter for token requests to slow down brute force attempts
	authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	bearer := middleware.BearerAuth(services.Tokens, logger)
	adminOnly := middleware.RequireRole(db, users.RoleAdmin, logger)

	// Ingestion limits are enforced by the handlers per endpoint
	functionsConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	resetConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         publicCORSConfig,
		EnableSecFetchSite: cartridge.Bool(false),
		WriteConcurrency:   true,
		CustomMiddleware:   []fiber.Handler{bearer, adminOnly},
	}

	tokenConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{authRateLimiter},
	}

	adminAPIConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{bearer, adminOnly},
	}

	// === ROOT ROUTES ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === FUNCTIONS ===
	fns := services.Functions
	srv.Post("/functions/v1/track-page-view", fns.TrackPageViewAction, functionsConfig)
	srv.Options("/functions/v1/track-page-view", v1.PreflightAction, functionsConfig)
	srv.Post("/functions/v1/track-whatsapp-click", fns.TrackWhatsAppClickAction, functionsConfig)
	srv.Options("/functions/v1/track-whatsapp-click", v1.PreflightAction, functionsConfig)
	srv.Post("/functions/v1/reset-analytics", fns.ResetAnalyticsAction, resetConfig)
	srv.Options("/functions/v1/reset-analytics", v1.PreflightAction, functionsConfig)

	// === AUTHENTICATION ===
	srv.Post("/auth/token", http.TokenCreateAction(services.Tokens), tokenConfig)

	// === ADMIN API ===
	analytics := services.Analytics
	srv.Get("/admin/api/analytics", analytics.ShowAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/loading", analytics.LoadingAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/totals", analytics.TotalsAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/export.csv", analytics.ExportCSVAction, adminAPIConfig)
	srv.Get("/admin/api/analytics/export.xlsx", analytics.ExportXLSXAction, adminAPIConfig)

	settingsHandler := &http.Settings{Store: services.Settings}
	srv.Get("/admin/api/settings/ingestion", settingsHandler.IngestionSettingsShowAction, adminAPIConfig)
	srv.Post("/admin/api/settings/ingestion", settingsHandler.IngestionSettingsUpdateAction, adminAPIConfig)

	srv.Post("/admin/api/account/change-password", http.AccountChangePasswordAction, adminAPIConfig)
	srv.Post("/admin/api/system/purge-cache", http.SystemPurgeCacheAction(services.Dashboard.Invalidate), adminAPIConfig)

	srv.Get("/metrics", http.MetricsAction(services.Registry), adminAPIConfig)
}
