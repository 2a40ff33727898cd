package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// ResetOptions selects which event tables a reset empties.
type ResetOptions struct {
	PageViews      bool
	WhatsAppClicks bool
}

// AllTables resets both event tables.
var AllTables = ResetOptions{PageViews: true, WhatsAppClicks: true}

// ResetResult holds the number of rows removed per table.
type ResetResult struct {
	PageViews      int64 `json:"pageViews"`
	WhatsAppClicks int64 `json:"whatsappClicks"`
}

// Message is the human-readable summary returned to the admin panel.
func (r ResetResult) Message() string {
	return fmt.Sprintf("Dados resetados com sucesso. Deletados: %d page views, %d cliques WhatsApp.",
		r.PageViews, r.WhatsAppClicks)
}

// Reset deletes every row from the selected tables regardless of date.
// Both deletes share one write transaction: on error nothing is removed
// and the returned counts are zero.
func Reset(ctx context.Context, logger *slog.Logger, db *gorm.DB, opts ResetOptions) (ResetResult, error) {
	var result ResetResult

	err := sqlite.PerformWrite(logger, db.WithContext(ctx), func(tx *gorm.DB) error {
		result = ResetResult{}
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})

		if opts.PageViews {
			res := all.Delete(&PageView{})
			if res.Error != nil {
				return fmt.Errorf("failed to delete page views: %w", res.Error)
			}
			result.PageViews = res.RowsAffected
		}

		if opts.WhatsAppClicks {
			res := all.Delete(&WhatsAppClick{})
			if res.Error != nil {
				return fmt.Errorf("failed to delete whatsapp clicks: %w", res.Error)
			}
			result.WhatsAppClicks = res.RowsAffected
		}

		return nil
	})
	if err != nil {
		return ResetResult{}, err
	}

	logger.Info("Analytics reset",
		slog.Int64("page_views", result.PageViews),
		slog.Int64("whatsapp_clicks", result.WhatsAppClicks))

	return result, nil
}
