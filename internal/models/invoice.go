package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceDirection distinguishes receivables from payables.
type InvoiceDirection string

const (
	InvoiceCustomer InvoiceDirection = "customer"
	InvoiceSupplier InvoiceDirection = "supplier"
)

// InvoiceState is the accounting state reported by the invoice feed.
type InvoiceState string

const (
	InvoiceDraft  InvoiceState = "draft"
	InvoiceOpen   InvoiceState = "open"
	InvoicePaid   InvoiceState = "paid"
	InvoiceCancel InvoiceState = "cancel"
)

// Invoice is a read model of an externally issued invoice. The cash planner
// never writes invoices; it only reads them through an invoice feed.
type Invoice struct {
	Base
	Number              string           `gorm:"not null;index" json:"number"`
	SupplierNumber      string           `json:"supplier_number,omitempty"`
	Direction           InvoiceDirection `gorm:"not null;index" json:"direction"`
	State               InvoiceState     `gorm:"not null;index" json:"state"`
	DueDate             time.Time        `gorm:"type:date;not null;index" json:"due_date"`
	IssueDate           *time.Time       `gorm:"type:date" json:"issue_date,omitempty"`
	PartnerID           *string          `gorm:"index" json:"partner_id,omitempty"`
	AmountTotal         decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"amount_total"`
	Residual            decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"residual"`
	Currency            string           `gorm:"size:3;not null" json:"currency"`
	Priority            Priority         `json:"priority,omitempty"`
	PaymentVerified     bool             `gorm:"not null" json:"payment_verified"`
	ExcludeFromCashflow bool             `gorm:"not null" json:"exclude_from_cashflow"`
}
