package http

import (
	"encoding/json"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	"log/slog"

	"github.com/karloscodes/cartridge"

	"vitrine/internal/settings"
)

// validateIPList validates a comma-separated list of IP addresses
func validateIPList(ipList string) (bool, string) {
	if ipList == "" {
		return true, ""
	}

	for _, ip := range strings.Split(ipList, ",") {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		if net.ParseIP(ip) == nil {
			return false, "Invalid IP address format: " + ip
		}
	}

	return true, ""
}

// Settings serves the ingestion settings.
type Settings struct {
	Store *settings.Store
}

// IngestionSettingsShowAction returns the IPs whose events are dropped.
func (s *Settings) IngestionSettingsShowAction(ctx *cartridge.Context) error {
	ips, err := s.Store.ExcludedIPs()
	if err != nil {
		ctx.Logger.Error("failed to read excluded_ips setting", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
	return ctx.JSON(fiber.Map{"excluded_ips": ips})
}

// IngestionSettingsUpdateAction replaces the excluded IP list.
func (s *Settings) IngestionSettingsUpdateAction(ctx *cartridge.Context) error {
	var req struct {
		ExcludedIPs string `json:"excluded_ips"`
	}
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if valid, msg := validateIPList(req.ExcludedIPs); !valid {
		ctx.Logger.Warn("invalid IP format submitted", slog.String("error", msg))
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	if err := s.Store.Set(settings.ExcludedIPsKey, req.ExcludedIPs); err != nil {
		ctx.Logger.Error("failed to update excluded_ips setting", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update IP filtering settings"})
	}

	ctx.Logger.Info("excluded IPs updated")
	return s.IngestionSettingsShowAction(ctx)
}
