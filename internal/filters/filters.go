// Package filters holds typed predicates over the item store. Each filter
// compiles to a GORM scope whose terms are ANDed together; empty fields add no
// condition. Ordering is left to the caller.
package filters

import (
	"time"

	"gorm.io/gorm"

	"cashplan/internal/models"
)

// PlannedItems selects planned items.
type PlannedItems struct {
	IDs             []string
	DateFrom        *time.Time
	DateTo          *time.Time
	Types           []models.FlowType
	States          []models.PlannedItemState
	ExcludeStates   []models.PlannedItemState
	CategoryIDs     []string
	PartnerIDs      []string
	Description     string
	BudgetID        *string
	RecurringItemID *string
}

// Scope compiles the filter.
func (f PlannedItems) Scope() func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if len(f.IDs) > 0 {
			q = q.Where("planned_items.id IN ?", f.IDs)
		}
		if f.DateFrom != nil {
			q = q.Where("planned_items.planned_date >= ?", models.Day(*f.DateFrom))
		}
		if f.DateTo != nil {
			q = q.Where("planned_items.planned_date <= ?", models.Day(*f.DateTo))
		}
		if len(f.Types) > 0 {
			q = q.Where("planned_items.type IN ?", f.Types)
		}
		if len(f.States) > 0 {
			q = q.Where("planned_items.state IN ?", f.States)
		}
		if len(f.ExcludeStates) > 0 {
			q = q.Where("planned_items.state NOT IN ?", f.ExcludeStates)
		}
		if len(f.CategoryIDs) > 0 {
			q = q.Where("planned_items.category_id IN ?", f.CategoryIDs)
		}
		if len(f.PartnerIDs) > 0 {
			q = q.Where("planned_items.partner_id IN ?", f.PartnerIDs)
		}
		if f.Description != "" {
			q = q.Where("planned_items.description = ?", f.Description)
		}
		if f.BudgetID != nil {
			q = q.Where("planned_items.budget_id = ?", *f.BudgetID)
		}
		if f.RecurringItemID != nil {
			q = q.Where("planned_items.recurring_item_id = ?", *f.RecurringItemID)
		}
		return q
	}
}

// Coverage is a (category, day) pair. A budget covers it when the category
// matches and the day falls inside the budget window.
type Coverage struct {
	CategoryID string
	Date       time.Time
}

// Budgets selects budgets.
type Budgets struct {
	IDs         []string
	CategoryIDs []string
	States      []models.BudgetState
	// OverlapFrom/OverlapTo keep budgets whose window intersects the range.
	OverlapFrom *time.Time
	OverlapTo   *time.Time
	// Covering keeps budgets that cover at least one of the pairs. A non-nil
	// empty slice matches nothing.
	Covering []Coverage
}

// Scope compiles the filter.
func (f Budgets) Scope() func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if len(f.IDs) > 0 {
			q = q.Where("budgets.id IN ?", f.IDs)
		}
		if len(f.CategoryIDs) > 0 {
			q = q.Where("budgets.category_id IN ?", f.CategoryIDs)
		}
		if len(f.States) > 0 {
			q = q.Where("budgets.state IN ?", f.States)
		}
		if f.OverlapTo != nil {
			q = q.Where("budgets.period_start <= ?", models.Day(*f.OverlapTo))
		}
		if f.OverlapFrom != nil {
			q = q.Where("budgets.period_end >= ?", models.Day(*f.OverlapFrom))
		}
		if f.Covering != nil {
			if len(f.Covering) == 0 {
				return q.Where("1 = 0")
			}
			var cover *gorm.DB
			for _, c := range f.Covering {
				d := models.Day(c.Date)
				term := q.Session(&gorm.Session{NewDB: true}).
					Where("budgets.category_id = ? AND budgets.period_start <= ? AND budgets.period_end >= ?", c.CategoryID, d, d)
				if cover == nil {
					cover = term
				} else {
					cover = cover.Or(term)
				}
			}
			q = q.Where(cover)
		}
		return q
	}
}

// RecurringItems selects recurring items.
type RecurringItems struct {
	States       []models.RecurringState
	AutoGenerate *bool
	CategoryIDs  []string
}

// Scope compiles the filter.
func (f RecurringItems) Scope() func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if len(f.States) > 0 {
			q = q.Where("recurring_items.state IN ?", f.States)
		}
		if f.AutoGenerate != nil {
			q = q.Where("recurring_items.auto_generate = ?", *f.AutoGenerate)
		}
		if len(f.CategoryIDs) > 0 {
			q = q.Where("recurring_items.category_id IN ?", f.CategoryIDs)
		}
		return q
	}
}
