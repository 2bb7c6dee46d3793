package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurrenceUnit is the calendar unit a recurring item steps by.
type RecurrenceUnit string

const (
	RecurrenceDay   RecurrenceUnit = "day"
	RecurrenceWeek  RecurrenceUnit = "week"
	RecurrenceMonth RecurrenceUnit = "month"
	RecurrenceYear  RecurrenceUnit = "year"
)

// RecurringState is the lifecycle state of a recurring item.
type RecurringState string

const (
	RecurringActive    RecurringState = "active"
	RecurringSuspended RecurringState = "suspended"
	RecurringExpired   RecurringState = "expired"
)

// RecurringItem is a template that periodically materializes planned items.
type RecurringItem struct {
	Base
	Description       string          `gorm:"not null" json:"description"`
	Type              FlowType        `gorm:"not null" json:"type"`
	CategoryID        string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount            decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	PartnerID         *string         `json:"partner_id,omitempty"`
	RecurrenceUnit    RecurrenceUnit  `gorm:"not null" json:"recurrence_unit"`
	Interval          int             `gorm:"column:recurrence_interval;not null" json:"interval"`
	StartDate         time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate           *time.Time      `gorm:"type:date" json:"end_date,omitempty"`
	AutoGenerate      bool            `gorm:"not null" json:"auto_generate"`
	DaysInAdvance     int             `gorm:"not null" json:"days_in_advance"`
	State             RecurringState  `gorm:"not null;index" json:"state"`
	LastGeneratedDate *time.Time      `gorm:"type:date" json:"last_generated_date,omitempty"`
	Notes             string          `json:"notes,omitempty"`

	// NextDate is derived on read and never stored.
	NextDate *time.Time `gorm:"-" json:"next_date,omitempty"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
