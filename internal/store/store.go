package store

import (
	"errors"
	"fmt"

	"stockwatch-service/internal/model"

	"gorm.io/gorm"
)

// Store is the run-state store: per-shop settings plus the append-only
// activity log, both backed by Postgres through GORM. All settings writes are
// shop-keyed upserts so that the scheduler, manual scans and the webhook path
// can write concurrently without explicit locking (last writer wins on
// individual fields).
type Store struct {
	db *gorm.DB
}

// New creates a Store on top of an open GORM handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetSettings returns the settings row for a shop, or nil when the shop has
// never been seen.
func (s *Store) GetSettings(shop string) (*model.ShopSettings, error) {
	var settings model.ShopSettings
	result := s.db.Where("shop = ?", shop).First(&settings)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settings for %s: %w", shop, result.Error)
	}
	return &settings, nil
}

// GetOrCreateSettings returns the settings row for a shop, creating a row
// with column defaults on first encounter.
func (s *Store) GetOrCreateSettings(shop string) (*model.ShopSettings, error) {
	var settings model.ShopSettings
	result := s.db.Where(model.ShopSettings{Shop: shop}).
		Attrs(model.ShopSettings{
			RunIntervalValue:        1,
			RunIntervalUnit:         model.IntervalUnitDays,
			InactivityThresholdDays: 90,
			CurrentRunState:         model.RunStateIdle,
			AutoReactivateEnabled:   true,
		}).
		FirstOrCreate(&settings)
	if result.Error != nil {
		return nil, fmt.Errorf("get or create settings for %s: %w", shop, result.Error)
	}
	return &settings, nil
}

// UpsertSettings merge-writes the given fields into the shop's settings row,
// creating the row first if it does not exist. Fields not present in the map
// are preserved.
func (s *Store) UpsertSettings(shop string, fields map[string]interface{}) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var settings model.ShopSettings
		if err := tx.Where(model.ShopSettings{Shop: shop}).FirstOrCreate(&settings).Error; err != nil {
			return fmt.Errorf("upsert settings for %s: %w", shop, err)
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&settings).Updates(fields).Error; err != nil {
			return fmt.Errorf("upsert settings for %s: %w", shop, err)
		}
		return nil
	})
}

// ListAutomationEnabled returns every shop with automation switched on, in
// stable shop order.
func (s *Store) ListAutomationEnabled() ([]model.ShopSettings, error) {
	var settings []model.ShopSettings
	result := s.db.Where("automation_enabled = ?", true).Order("shop asc").Find(&settings)
	if result.Error != nil {
		return nil, fmt.Errorf("list automation-enabled shops: %w", result.Error)
	}
	return settings, nil
}

// AppendActivityLog inserts one audit row.
func (s *Store) AppendActivityLog(entry *model.ActivityLog) error {
	if result := s.db.Create(entry); result.Error != nil {
		return fmt.Errorf("append activity log for %s: %w", entry.Shop, result.Error)
	}
	return nil
}

// ActivityFilter narrows ListActivityLog results.
type ActivityFilter struct {
	Action string
}

// ListActivityLog returns a page of the shop's audit log, newest first, plus
// the total row count for pagination.
func (s *Store) ListActivityLog(shop string, filter ActivityFilter, page, limit int) ([]model.ActivityLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := s.db.Model(&model.ActivityLog{}).Where("shop = ?", shop)
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count activity log for %s: %w", shop, err)
	}

	var entries []model.ActivityLog
	result := query.Order("created_at desc, id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("list activity log for %s: %w", shop, result.Error)
	}
	return entries, total, nil
}

// ClearActivityLog deletes the shop's entire audit history.
func (s *Store) ClearActivityLog(shop string) error {
	result := s.db.Where("shop = ?", shop).Delete(&model.ActivityLog{})
	if result.Error != nil {
		return fmt.Errorf("clear activity log for %s: %w", shop, result.Error)
	}
	return nil
}
