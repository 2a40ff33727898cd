package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Known setting keys
const (
	ExcludedIPsKey = "excluded_ips"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Store reads and writes settings, keeping the excluded IP list cached.
type Store struct {
	db          *gorm.DB
	logger      *slog.Logger
	excludedIPs *cache.Cache[string, []string]
}

// NewStore creates a settings store backed by db.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	s := &Store{db: db, logger: logger}
	s.excludedIPs = cache.NewCache[string, []string](logger, 5*time.Minute, s.fetchList)
	return s
}

// SetupDefaults inserts the default settings without overwriting existing values.
func (s *Store) SetupDefaults() error {
	defaults := []Setting{
		{Key: ExcludedIPsKey, Value: ""},
	}
	return sqlite.PerformWrite(s.logger, s.db, func(tx *gorm.DB) error {
		for _, setting := range defaults {
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, time.Now().UTC(), time.Now().UTC()).Error
			if err != nil {
				s.logger.Error("Failed to upsert setting", slog.String("key", setting.Key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})
}

// Get retrieves a setting value. A missing key yields an empty string.
func (s *Store) Get(key string) (string, error) {
	var setting Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return setting.Value, nil
}

// Set creates or updates a setting and drops any cached copy of it.
func (s *Store) Set(key, value string) error {
	err := sqlite.PerformWrite(s.logger, s.db, func(tx *gorm.DB) error {
		result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
		if result.Error != nil {
			return fmt.Errorf("failed to update setting: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			if err := tx.Create(&Setting{Key: key, Value: value}).Error; err != nil {
				return fmt.Errorf("failed to create setting: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.excludedIPs.Clear()
	return nil
}

// ExcludedIPs returns the list of IPs whose events are not recorded.
func (s *Store) ExcludedIPs() ([]string, error) {
	return s.excludedIPs.Get(ExcludedIPsKey)
}

// IsIPExcluded reports whether events from ip should be dropped.
func (s *Store) IsIPExcluded(ip string) (bool, error) {
	excluded, err := s.ExcludedIPs()
	if err != nil {
		return false, fmt.Errorf("failed to check excluded IPs: %w", err)
	}
	for _, candidate := range excluded {
		if candidate == ip {
			return true, nil
		}
	}
	return false, nil
}

// fetchList loads a comma-separated setting as a trimmed list.
func (s *Store) fetchList(key string) ([]string, error) {
	var value string
	err := s.db.WithContext(context.Background()).Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).Scan(&value).Error
	if err != nil {
		return nil, err
	}
	return ParseList(value), nil
}

// ParseList splits a comma-separated value, dropping blanks.
func ParseList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
