// Package http holds the admin API handlers.
package http

import (
	"bytes"
	"fmt"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vitrine/internal/analytics"
	"vitrine/internal/dashboard"
	"vitrine/internal/export"
	"vitrine/internal/timeframe"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Analytics serves the dashboard and its downloads.
type Analytics struct {
	Dashboard *dashboard.Service
	Parser    *timeframe.Parser
}

// parseRange reads period, from, to and tz from the query string.
func (a *Analytics) parseRange(ctx *cartridge.Context) (timeframe.Range, error) {
	return a.Parser.Parse(timeframe.ParserParams{
		Period:   ctx.Query("period"),
		FromDate: ctx.Query("from"),
		ToDate:   ctx.Query("to"),
		Tz:       ctx.Query("tz"),
	})
}

// load builds the dashboard for the request. On failure it writes the error
// response itself and returns a nil dashboard.
func (a *Analytics) load(ctx *cartridge.Context) (*dashboard.Dashboard, error) {
	r, err := a.parseRange(ctx)
	if err != nil {
		ctx.Logger.Warn("Invalid date range",
			slog.String("period", ctx.Query("period")),
			slog.String("from", ctx.Query("from")),
			slog.String("to", ctx.Query("to")),
			slog.Any("error", err))
		return nil, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date range"})
	}

	d, err := a.Dashboard.Get(r)
	if err != nil {
		ctx.Logger.Error("Error building dashboard", slog.Any("error", err))
		return nil, ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error fetching metrics"})
	}
	return d, nil
}

// ShowAction returns the composed dashboard for the requested range.
func (a *Analytics) ShowAction(ctx *cartridge.Context) error {
	d, err := a.load(ctx)
	if d == nil {
		return err
	}
	return ctx.JSON(d)
}

// ExportCSVAction downloads the dashboard as CSV.
func (a *Analytics) ExportCSVAction(ctx *cartridge.Context) error {
	d, err := a.load(ctx)
	if d == nil {
		return err
	}

	report := export.FromDashboard(d)
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, report); err != nil {
		ctx.Logger.Error("Failed to write CSV export", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export"})
	}
	return sendDownload(ctx, contentTypeCSV, export.Filename(report, "csv"), buf.Bytes())
}

// ExportXLSXAction downloads the dashboard as a spreadsheet.
func (a *Analytics) ExportXLSXAction(ctx *cartridge.Context) error {
	d, err := a.load(ctx)
	if d == nil {
		return err
	}

	report := export.FromDashboard(d)
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, report); err != nil {
		ctx.Logger.Error("Failed to write XLSX export", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export"})
	}
	return sendDownload(ctx, contentTypeXLSX, export.Filename(report, "xlsx"), buf.Bytes())
}

// TotalsAction returns the all-time event counts shown before a reset.
func (a *Analytics) TotalsAction(ctx *cartridge.Context) error {
	totals, err := analytics.EventTotals(ctx.UserContext(), ctx.DB())
	if err != nil {
		ctx.Logger.Error("Failed to count events", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
	return ctx.JSON(totals)
}

// LoadingAction reports which dashboard queries are still running.
func (a *Analytics) LoadingAction(ctx *cartridge.Context) error {
	return ctx.JSON(a.Dashboard.Snapshot())
}

func sendDownload(ctx *cartridge.Context, contentType, filename string, body []byte) error {
	ctx.Set(fiber.HeaderContentType, contentType)
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Logger.Info("Analytics exported", slog.String("file", filename), slog.Int("size", len(body)))
	return ctx.Send(body)
}
