package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Run interval units supported by the scheduler.
const (
	IntervalUnitMinutes = "minutes"
	IntervalUnitDays    = "days"
)

// Kinds of scan runs recorded in LastRunKind.
const (
	RunKindManual = "MANUAL"
	RunKindAuto   = "AUTO"
)

// RunStateIdle is the resting value of CurrentRunState. Anything else is a
// human-readable in-progress marker (e.g. "Deactivating: 20/57 items...").
const RunStateIdle = "IDLE"

// ShopSettings holds per-shop automation configuration and last-run metadata.
// One row per shop; the row is created lazily on first settings save or first
// scheduler encounter and is only ever upserted, never hard-deleted.
type ShopSettings struct {
	ID                      uint           `json:"id" gorm:"primarykey"`
	Shop                    string         `json:"shop" gorm:"type:varchar(255);uniqueIndex;not null;comment:'Shop domain, the tenant key'"`
	AccessToken             string         `json:"-" gorm:"type:varchar(255)"`
	AutomationEnabled       bool           `json:"automation_enabled" gorm:"default:false"`
	RunIntervalValue        int            `json:"run_interval_value" gorm:"default:1"`
	RunIntervalUnit         string         `json:"run_interval_unit" gorm:"type:varchar(10);default:'days'"`
	InactivityThresholdDays int            `json:"inactivity_threshold_days" gorm:"default:90"`
	LastRunAt               *time.Time     `json:"last_run_at"`
	LastRunKind             *string        `json:"last_run_kind" gorm:"type:varchar(10)"`
	LastRunResults          string         `json:"-" gorm:"type:text"`
	CurrentRunState         string         `json:"current_run_state" gorm:"type:varchar(100);default:'IDLE'"`
	AutoReactivateEnabled   bool           `json:"auto_reactivate_enabled" gorm:"default:true"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	DeletedAt               gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// ProductSnapshot is a point-in-time view of a deactivated product, persisted
// as a JSON array inside ShopSettings.LastRunResults. Each scan replaces the
// previous result set wholesale.
type ProductSnapshot struct {
	ProductID      string `json:"product_id"`
	Title          string `json:"title"`
	SKU            string `json:"sku"`
	ImageURL       string `json:"image_url,omitempty"`
	InactivityDays int    `json:"inactivity_days"`
}

// LastRunResultSet deserializes the stored last-run snapshots. An empty or
// unset column yields an empty slice, not an error.
func (s *ShopSettings) LastRunResultSet() ([]ProductSnapshot, error) {
	if s.LastRunResults == "" {
		return []ProductSnapshot{}, nil
	}
	var snapshots []ProductSnapshot
	if err := json.Unmarshal([]byte(s.LastRunResults), &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// EncodeResultSet serializes a snapshot list for storage in LastRunResults.
func EncodeResultSet(snapshots []ProductSnapshot) (string, error) {
	if snapshots == nil {
		snapshots = []ProductSnapshot{}
	}
	data, err := json.Marshal(snapshots)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NextDueAfter returns the instant the next scheduled run becomes due, given
// the last run time. The two units use different arithmetic: minutes are exact
// wall-clock minutes, while days advance the calendar date, so a run on
// Jan 31 with a 1-day interval is next due on Feb 1 regardless of DST.
func (s *ShopSettings) NextDueAfter(last time.Time) time.Time {
	if s.RunIntervalUnit == IntervalUnitMinutes {
		return last.Add(time.Duration(s.RunIntervalValue) * time.Minute)
	}
	return last.AddDate(0, 0, s.RunIntervalValue)
}
