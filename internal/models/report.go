package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TypeFilter restricts report lines by flow direction.
type TypeFilter string

const (
	TypeFilterAll     TypeFilter = "all"
	TypeFilterIncome  TypeFilter = "income"
	TypeFilterPayment TypeFilter = "payment"
)

// StateFilter restricts overview lines by settlement state.
type StateFilter string

const (
	StateFilterAll     StateFilter = "all"
	StateFilterPlanned StateFilter = "planned"
	StateFilterPaid    StateFilter = "paid"
)

// BudgetStateFilter restricts budget analysis to budgets in a given state.
type BudgetStateFilter string

const (
	BudgetStateFilterAll       BudgetStateFilter = "all"
	BudgetStateFilterDraft     BudgetStateFilter = "draft"
	BudgetStateFilterConfirmed BudgetStateFilter = "confirmed"
	BudgetStateFilterClosed    BudgetStateFilter = "closed"
)

// VarianceFilter restricts budget analysis lines by how the budget is tracking.
type VarianceFilter string

const (
	VarianceAll    VarianceFilter = "all"
	VarianceOver   VarianceFilter = "over"
	VarianceUnder  VarianceFilter = "under"
	VarianceWithin VarianceFilter = "within"
)

// GroupBy is the bucket size for forecast period summaries.
type GroupBy string

const (
	GroupByDay     GroupBy = "day"
	GroupByWeek    GroupBy = "week"
	GroupByMonth   GroupBy = "month"
	GroupByQuarter GroupBy = "quarter"
)

// LineSource names where an overview line came from.
type LineSource string

const (
	SourcePlannedItem LineSource = "planned_item"
	SourceInvoice     LineSource = "invoice"
)

// BudgetStatus classifies a budget by usage percent.
type BudgetStatus string

const (
	BudgetStatusGood       BudgetStatus = "good"
	BudgetStatusOnTrack    BudgetStatus = "on_track"
	BudgetStatusWarning    BudgetStatus = "warning"
	BudgetStatusOverBudget BudgetStatus = "over_budget"
)

// OverviewReport is a merged view of planned items and invoices with totals.
type OverviewReport struct {
	Base
	Name                 string          `gorm:"not null" json:"name"`
	DateFrom             time.Time       `gorm:"type:date;not null" json:"date_from"`
	DateTo               time.Time       `gorm:"type:date;not null" json:"date_to"`
	TypeFilter           TypeFilter      `gorm:"not null" json:"type_filter"`
	StateFilter          StateFilter     `gorm:"not null" json:"state_filter"`
	CategoryID           *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	IncludeSubcategories bool            `gorm:"not null" json:"include_subcategories"`
	PartnerIDs           []string        `gorm:"serializer:json" json:"partner_ids"`
	IncludePlannedItems  bool            `gorm:"not null" json:"include_planned_items"`
	IncludeInvoices      bool            `gorm:"not null" json:"include_invoices"`
	TotalIncome          decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"total_income"`
	TotalPayment         decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"total_payment"`
	NetCashflow          decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"net_cashflow"`
	LineCount            int             `gorm:"not null" json:"line_count"`
	LoadedAt             *time.Time      `json:"loaded_at,omitempty"`

	Lines []OverviewLine `gorm:"foreignKey:ReportID" json:"lines,omitempty"`
}

// OverviewLine is one planned item or invoice inside an overview report.
type OverviewLine struct {
	Base
	ReportID      string           `gorm:"type:uuid;not null;index" json:"report_id"`
	Sequence      int              `gorm:"not null" json:"sequence"`
	Source        LineSource       `gorm:"not null" json:"source"`
	Date          time.Time        `gorm:"type:date;not null" json:"date"`
	Type          FlowType         `gorm:"not null" json:"type"`
	Description   string           `json:"description"`
	DocumentLabel string           `json:"document_label,omitempty"`
	CategoryID    *string          `gorm:"type:uuid" json:"category_id,omitempty"`
	PartnerID     *string          `json:"partner_id,omitempty"`
	PlannedItemID *string          `gorm:"type:uuid" json:"planned_item_id,omitempty"`
	InvoiceID     *string          `json:"invoice_id,omitempty"`
	State         PlannedItemState `gorm:"not null" json:"state"`
	Amount        decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"amount"`
	SignedAmount  decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"signed_amount"`
	Currency      string           `gorm:"size:3" json:"currency"`
}

// ForecastReport projects a running cash balance from an opening balance.
type ForecastReport struct {
	Base
	Name                 string          `gorm:"not null" json:"name"`
	DateFrom             time.Time       `gorm:"type:date;not null" json:"date_from"`
	DateTo               time.Time       `gorm:"type:date;not null" json:"date_to"`
	OpeningBalance       decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"opening_balance"`
	CategoryID           *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	IncludeSubcategories bool            `gorm:"not null" json:"include_subcategories"`
	IncludePlanned       bool            `gorm:"not null" json:"include_planned"`
	GroupBy              GroupBy         `gorm:"not null" json:"group_by"`
	TotalIncome          decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"total_income"`
	TotalPayment         decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"total_payment"`
	NetCashflow          decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"net_cashflow"`
	ClosingBalance       decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"closing_balance"`
	LineCount            int             `gorm:"not null" json:"line_count"`
	LoadedAt             *time.Time      `json:"loaded_at,omitempty"`

	Lines []ForecastLine `gorm:"foreignKey:ReportID" json:"lines,omitempty"`
}

// ForecastLine is one planned item with the balance after applying it.
type ForecastLine struct {
	Base
	ReportID      string           `gorm:"type:uuid;not null;index" json:"report_id"`
	Sequence      int              `gorm:"not null" json:"sequence"`
	Date          time.Time        `gorm:"type:date;not null" json:"date"`
	Type          FlowType         `gorm:"not null" json:"type"`
	Description   string           `json:"description"`
	CategoryID    *string          `gorm:"type:uuid" json:"category_id,omitempty"`
	PartnerID     *string          `json:"partner_id,omitempty"`
	PlannedItemID *string          `gorm:"type:uuid" json:"planned_item_id,omitempty"`
	State         PlannedItemState `gorm:"not null" json:"state"`
	Amount        decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"amount"`
	SignedAmount  decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"signed_amount"`
	BalanceAfter  decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"balance_after"`
	Currency      string           `gorm:"size:3" json:"currency"`
}

// BudgetReport compares budgets against their recorded usage.
type BudgetReport struct {
	Base
	Name                 string            `gorm:"not null" json:"name"`
	DateFrom             time.Time         `gorm:"type:date;not null" json:"date_from"`
	DateTo               time.Time         `gorm:"type:date;not null" json:"date_to"`
	CategoryID           *string           `gorm:"type:uuid" json:"category_id,omitempty"`
	IncludeSubcategories bool              `gorm:"not null" json:"include_subcategories"`
	StateFilter          BudgetStateFilter `gorm:"not null" json:"state_filter"`
	VarianceFilter       VarianceFilter    `gorm:"not null" json:"variance_filter"`
	TotalPlanned         decimal.Decimal   `gorm:"type:numeric(16,2);not null" json:"total_planned"`
	TotalUsed            decimal.Decimal   `gorm:"type:numeric(16,2);not null" json:"total_used"`
	TotalRemaining       decimal.Decimal   `gorm:"type:numeric(16,2);not null" json:"total_remaining"`
	TotalVariance        decimal.Decimal   `gorm:"type:numeric(16,2);not null" json:"total_variance"`
	LineCount            int               `gorm:"not null" json:"line_count"`
	LoadedAt             *time.Time        `json:"loaded_at,omitempty"`

	Lines []BudgetReportLine `gorm:"foreignKey:ReportID" json:"lines,omitempty"`
}

// BudgetReportLine is one budget's planned/used comparison.
type BudgetReportLine struct {
	Base
	ReportID        string          `gorm:"type:uuid;not null;index" json:"report_id"`
	Sequence        int             `gorm:"not null" json:"sequence"`
	BudgetID        string          `gorm:"type:uuid;not null" json:"budget_id"`
	BudgetName      string          `json:"budget_name"`
	CategoryID      string          `gorm:"type:uuid;not null" json:"category_id"`
	CategoryName    string          `json:"category_name"`
	PeriodStart     time.Time       `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd       time.Time       `gorm:"type:date;not null" json:"period_end"`
	BudgetState     BudgetState     `gorm:"not null" json:"budget_state"`
	PlannedAmount   decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"planned_amount"`
	UsedAmount      decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"used_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"remaining_amount"`
	UsagePercent    decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"usage_percent"`
	Variance        decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"variance"`
	Status          BudgetStatus    `gorm:"not null" json:"status"`
	Currency        string          `gorm:"size:3" json:"currency"`
}
