// Package leads reads the contact-form leads collected by the website.
// Leads are written by the CMS; analytics only counts them.
package leads

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vitrine/internal/timeframe"
)

// Lead statuses used by the CMS.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusConverted = "converted"
	StatusLost      = "lost"
)

type Lead struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"index;not null" json:"email"`
	Phone        *string   `json:"phone"`
	Organization *string   `json:"organization"`
	Service      *string   `json:"service"`
	Message      *string   `gorm:"type:text" json:"message"`
	Status       string    `gorm:"index;not null;default:new" json:"status"`
	Notes        *string   `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CountInRange returns the number of leads created within r.
func CountInRange(ctx context.Context, db *gorm.DB, r timeframe.Range) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&Lead{}).
		Where("created_at >= ? AND created_at <= ?", r.FromUTC(), r.ToUTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting leads: %w", err)
	}
	return count, nil
}
