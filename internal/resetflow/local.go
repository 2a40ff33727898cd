package resetflow

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"vitrine/internal/events"
)

// LocalResetter deletes events directly in the database, for operators on the host.
type LocalResetter struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewLocalResetter(db *gorm.DB, logger *slog.Logger) *LocalResetter {
	return &LocalResetter{db: db, logger: logger}
}

func (r *LocalResetter) Reset(ctx context.Context, opts Options) (Result, error) {
	deleted, err := events.Reset(ctx, r.logger, r.db, events.ResetOptions{
		PageViews:      opts.PageViews,
		WhatsAppClicks: opts.WhatsAppClicks,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Deleted: Counts{PageViews: deleted.PageViews, WhatsAppClicks: deleted.WhatsAppClicks},
		Message: deleted.Message(),
	}, nil
}
