package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// RecordPageView stores a validated page view.
func RecordPageView(ctx context.Context, logger *slog.Logger, db *gorm.DB, pv *PageView) error {
	err := sqlite.PerformWrite(logger, db.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(pv).Error
	})
	if err != nil {
		return fmt.Errorf("failed to store page view: %w", err)
	}
	return nil
}

// RecordWhatsAppClick stores a sanitized WhatsApp click.
func RecordWhatsAppClick(ctx context.Context, logger *slog.Logger, db *gorm.DB, click *WhatsAppClick) error {
	err := sqlite.PerformWrite(logger, db.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(click).Error
	})
	if err != nil {
		return fmt.Errorf("failed to store whatsapp click: %w", err)
	}
	return nil
}
