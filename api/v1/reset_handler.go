package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vitrine/internal/events"
)

// ResetParams selects the tables to empty. An omitted field means true.
type ResetParams struct {
	PageViews      *bool `json:"pageViews"`
	WhatsAppClicks *bool `json:"whatsappClicks"`
}

func (p ResetParams) options() events.ResetOptions {
	return events.ResetOptions{
		PageViews:      p.PageViews == nil || *p.PageViews,
		WhatsAppClicks: p.WhatsAppClicks == nil || *p.WhatsAppClicks,
	}
}

// ResetAnalyticsAction deletes every event from the selected tables.
// Authentication and the admin role check run as route middleware.
func (f *Functions) ResetAnalyticsAction(ctx *cartridge.Context) error {
	var params ResetParams
	if body := ctx.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			ctx.Logger.Debug("Ignoring malformed reset body", slog.Any("error", err))
			params = ResetParams{}
		}
	}

	result, err := events.Reset(ctx.UserContext(), ctx.Logger, ctx.DB(), params.options())
	f.Metrics.RecordReset(err)
	if err != nil {
		ctx.Logger.Error("Failed to reset analytics", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errResetFailed})
	}

	if f.OnReset != nil {
		f.OnReset()
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"deleted": result,
		"message": result.Message(),
	})
}
