package events

import "time"

// Field limits applied before an event is stored.
const (
	MaxPathLength     = 500
	MaxReferrerLength = 500
	MaxUserAgentLen   = 500
	MaxIdentityLength = 100
	MaxSourceLength   = 50
	MaxPagePathLength = 200
)

// UnknownSource labels WhatsApp clicks that arrive without a usable source.
const UnknownSource = "unknown"

// PageView is one recorded navigation. Rows are append-only and only removed by Reset.
type PageView struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Path      string    `gorm:"index;size:500;not null" json:"path"`
	Referrer  *string   `gorm:"size:500" json:"referrer"`
	UserAgent *string   `gorm:"size:500" json:"user_agent"`
	VisitorID string    `gorm:"index;size:100;not null" json:"visitor_id"`
	SessionID string    `gorm:"index;size:100;not null" json:"session_id"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName pins the table name used by the dashboards and the reset function.
func (PageView) TableName() string { return "page_views" }

// WhatsAppClick is one click on a WhatsApp call to action.
type WhatsAppClick struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Source    string    `gorm:"index;size:50;not null;default:unknown" json:"source"`
	VisitorID *string   `gorm:"index;size:100" json:"visitor_id"`
	SessionID *string   `gorm:"size:100" json:"session_id"`
	PagePath  *string   `gorm:"size:200" json:"page_path"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName pins the table name used by the dashboards and the reset function.
func (WhatsAppClick) TableName() string { return "whatsapp_clicks" }
