package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetState is the lifecycle state of a budget.
type BudgetState string

const (
	BudgetDraft     BudgetState = "draft"
	BudgetConfirmed BudgetState = "confirmed"
	BudgetClosed    BudgetState = "closed"
)

// Budget caps planned spending for a category over a closed date window.
// UsedAmount and RemainingAmount are maintained by the usage aggregator.
type Budget struct {
	Base
	Name            string          `gorm:"not null" json:"name"`
	CategoryID      string          `gorm:"type:uuid;not null;index" json:"category_id"`
	PeriodStart     time.Time       `gorm:"type:date;not null;index" json:"period_start"`
	PeriodEnd       time.Time       `gorm:"type:date;not null;index" json:"period_end"`
	PlannedAmount   decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"planned_amount"`
	UsedAmount      decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"used_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"remaining_amount"`
	Currency        string          `gorm:"size:3;not null" json:"currency"`
	State           BudgetState     `gorm:"not null;index" json:"state"`
	Notes           string          `json:"notes,omitempty"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// Covers reports whether the budget window contains day d (bounds inclusive).
func (b *Budget) Covers(categoryID string, d time.Time) bool {
	if b.CategoryID != categoryID {
		return false
	}
	d = Day(d)
	return !d.Before(Day(b.PeriodStart)) && !d.After(Day(b.PeriodEnd))
}
