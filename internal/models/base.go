package models

import (
	"time"

	"cashplan/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// Day truncates t to midnight UTC of its calendar day. All planning dates
// (planned, due, period bounds) are stored in this form.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayPtr is Day for optional dates.
func DayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := Day(*t)
	return &d
}

// All lists every model managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Category{},
		&PlannedItem{},
		&RecurringItem{},
		&Budget{},
		&Invoice{},
		&OverviewReport{},
		&OverviewLine{},
		&ForecastReport{},
		&ForecastLine{},
		&BudgetReport{},
		&BudgetReportLine{},
		&AuditLog{},
	}
}
