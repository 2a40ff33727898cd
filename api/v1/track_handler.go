package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vitrine/internal/events"
	"vitrine/internal/metrics"
	"vitrine/internal/ratelimit"
)

// allow asks the limiter about ip. Limiter failures let the request through.
func (f *Functions) allow(ctx *cartridge.Context, limiter ratelimit.Limiter, scope, ip string) bool {
	allowed, err := limiter.Allow(ctx.UserContext(), scope+":"+ip)
	if err != nil {
		ctx.Logger.Warn("Rate limiter unavailable, allowing request",
			slog.String("scope", scope),
			slog.Any("error", err))
		return true
	}
	return allowed
}

// excluded reports whether ip is on the excluded list. Lookup failures count as not excluded.
func (f *Functions) excluded(ctx *cartridge.Context, ip string) bool {
	if f.Settings == nil {
		return false
	}
	excluded, err := f.Settings.IsIPExcluded(ip)
	if err != nil {
		ctx.Logger.Warn("Failed to check excluded IPs", slog.Any("error", err))
		return false
	}
	return excluded
}

// TrackPageViewAction records one page view.
// Over the limit the request is answered as a success without being stored.
func (f *Functions) TrackPageViewAction(ctx *cartridge.Context) error {
	ip := getClientIP(ctx.Ctx)

	if !f.allow(ctx, f.PageViewLimiter, metrics.EndpointPageView, ip) {
		ctx.Logger.Debug("Page view rate limited", slog.String("ip", ip))
		f.Metrics.RecordIngest(metrics.EndpointPageView, metrics.OutcomeRateLimited)
		return ctx.JSON(fiber.Map{"success": true})
	}

	var req events.PageViewRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		f.Metrics.RecordIngest(metrics.EndpointPageView, metrics.OutcomeInvalid)
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidBody})
	}

	pv, err := events.NewPageView(req, f.now())
	if err != nil {
		f.Metrics.RecordIngest(metrics.EndpointPageView, metrics.OutcomeInvalid)
		msg := errInvalidIdentity
		if errors.Is(err, events.ErrInvalidPath) {
			msg = errInvalidPath
		}
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	if f.excluded(ctx, ip) {
		f.Metrics.RecordIngest(metrics.EndpointPageView, metrics.OutcomeExcluded)
		return ctx.JSON(fiber.Map{"success": true})
	}

	if err := events.RecordPageView(ctx.UserContext(), ctx.Logger, ctx.DB(), pv); err != nil {
		ctx.Logger.Error("Failed to insert page view", slog.Any("error", err))
		f.Metrics.RecordIngest(metrics.EndpointPageView, metrics.OutcomeFailed)
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errServer})
	}

	f.Metrics.RecordIngest(metrics.EndpointPageView, metrics.OutcomeAccepted)
	return ctx.JSON(fiber.Map{"success": true})
}

// TrackWhatsAppClickAction records one click on a WhatsApp link.
func (f *Functions) TrackWhatsAppClickAction(ctx *cartridge.Context) error {
	ip := getClientIP(ctx.Ctx)

	if !f.allow(ctx, f.WhatsAppLimiter, metrics.EndpointWhatsAppClick, ip) {
		f.Metrics.RecordIngest(metrics.EndpointWhatsAppClick, metrics.OutcomeRateLimited)
		return ctx.Status(http.StatusTooManyRequests).JSON(fiber.Map{"error": errRateLimited})
	}

	var req events.WhatsAppClickRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		f.Metrics.RecordIngest(metrics.EndpointWhatsAppClick, metrics.OutcomeInvalid)
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": errInvalidBody})
	}

	if f.excluded(ctx, ip) {
		f.Metrics.RecordIngest(metrics.EndpointWhatsAppClick, metrics.OutcomeExcluded)
		return ctx.JSON(fiber.Map{"success": true})
	}

	click := events.NewWhatsAppClick(req, f.now())
	if err := events.RecordWhatsAppClick(ctx.UserContext(), ctx.Logger, ctx.DB(), click); err != nil {
		ctx.Logger.Error("Failed to insert whatsapp click", slog.Any("error", err))
		f.Metrics.RecordIngest(metrics.EndpointWhatsAppClick, metrics.OutcomeFailed)
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errTrackClick})
	}

	f.Metrics.RecordIngest(metrics.EndpointWhatsAppClick, metrics.OutcomeAccepted)
	return ctx.JSON(fiber.Map{"success": true})
}

// PreflightAction answers CORS preflight requests.
func PreflightAction(ctx *cartridge.Context) error {
	return ctx.SendStatus(fiber.StatusNoContent)
}
