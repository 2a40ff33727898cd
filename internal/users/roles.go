package users

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// RoleAdmin is the only role the analytics backend checks.
const RoleAdmin = "admin"

// UserRole grants a role to a user. Privileged operations look roles up here
// instead of trusting anything the client sends.
type UserRole struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_role;not null"`
	Role      string    `gorm:"uniqueIndex:idx_user_role;size:32;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// HasRole reports whether userID holds role.
func HasRole(db *gorm.DB, userID uint, role string) (bool, error) {
	var count int64
	err := db.Model(&UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up role %s for user %d: %w", role, userID, err)
	}
	return count > 0, nil
}

// GrantRole gives userID the role. Granting a role twice is a no-op.
func GrantRole(db *gorm.DB, userID uint, role string) error {
	return sqlite.PerformWrite(slog.Default(), db, func(tx *gorm.DB) error {
		return tx.Exec(`
            INSERT INTO user_roles (user_id, role, created_at)
            VALUES (?, ?, ?)
            ON CONFLICT(user_id, role) DO NOTHING
        `, userID, role, time.Now().UTC()).Error
	})
}

// RevokeRole removes role from userID.
func RevokeRole(db *gorm.DB, userID uint, role string) error {
	return sqlite.PerformWrite(slog.Default(), db, func(tx *gorm.DB) error {
		return tx.Where("user_id = ? AND role = ?", userID, role).Delete(&UserRole{}).Error
	})
}
