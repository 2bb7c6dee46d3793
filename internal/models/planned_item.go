package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlannedItemState is the lifecycle state of a planned item.
type PlannedItemState string

const (
	PlannedItemPlanned   PlannedItemState = "planned"
	PlannedItemPaid      PlannedItemState = "paid"
	PlannedItemCancelled PlannedItemState = "cancelled"
)

// Priority ranks planned items for cash management.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PlannedItem is a single expected money movement on a date.
type PlannedItem struct {
	Base
	Description     string           `gorm:"not null;index:idx_planned_items_dedup,priority:1" json:"description"`
	Type            FlowType         `gorm:"not null;index" json:"type"`
	PlannedDate     time.Time        `gorm:"type:date;not null;index;index:idx_planned_items_dedup,priority:3" json:"planned_date"`
	ActualDate      *time.Time       `gorm:"type:date" json:"actual_date,omitempty"`
	CategoryID      string           `gorm:"type:uuid;not null;index;index:idx_planned_items_dedup,priority:2" json:"category_id"`
	Amount          decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"amount"`
	SignedAmount    decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"signed_amount"`
	Currency        string           `gorm:"size:3;not null" json:"currency"`
	Priority        Priority         `gorm:"not null" json:"priority"`
	PartnerID       *string          `gorm:"index" json:"partner_id,omitempty"`
	BudgetID        *string          `gorm:"type:uuid;index" json:"budget_id,omitempty"`
	InvoiceRef      string           `json:"invoice_ref,omitempty"`
	RecurringItemID *string          `gorm:"type:uuid;index" json:"recurring_item_id,omitempty"`
	State           PlannedItemState `gorm:"not null;index" json:"state"`
	Notes           string           `json:"notes,omitempty"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// BeforeSave keeps the persisted signed amount in step with type and amount.
func (p *PlannedItem) BeforeSave(tx *gorm.DB) error {
	p.SignedAmount = SignedAmount(p.Type, p.Amount)
	return nil
}

// SignedAmount is +|amount| for income and -|amount| for payments.
func SignedAmount(t FlowType, amount decimal.Decimal) decimal.Decimal {
	if t == FlowPayment {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}
