package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cashplan/internal/filters"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
	"cashplan/internal/reporting"
)

// CategoryPath is the chain of names from a root category down to a node.
type CategoryPath struct {
	CategoryID string   `json:"category_id"`
	Names      []string `json:"names"`
	FullPath   string   `json:"full_path"`
}

// CategoryServicer defines the contract for the category registry.
type CategoryServicer interface {
	CreateCategory(name, code string, categoryType models.FlowType, parentID *string, sequence int, description string) (*models.Category, error)
	ListCategories(categoryType *models.FlowType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(id string) (*models.Category, error)
	UpdateCategory(id string, name, description *string, sequence *int, active *bool) (*models.Category, error)
	MoveCategory(id string, parentID *string) (*models.Category, error)
	ChangeCategoryType(id string, categoryType models.FlowType) (*models.Category, error)
	GetCategoryPath(id string) (*CategoryPath, error)
	GetDescendants(id string) ([]models.Category, error)
	GetAncestors(id string) ([]models.Category, error)
	DeleteCategory(id string) error
}

// PlannedItemInput carries the fields of a new planned item. An empty Type
// inherits the category's type.
type PlannedItemInput struct {
	Description string
	Type        models.FlowType
	PlannedDate time.Time
	CategoryID  string
	Amount      decimal.Decimal
	Currency    string
	Priority    models.Priority
	PartnerID   *string
	BudgetID    *string
	InvoiceRef  string
	Notes       string
}

// PlannedItemUpdate holds optional planned item changes; nil fields are left alone.
type PlannedItemUpdate struct {
	Description *string
	PlannedDate *time.Time
	CategoryID  *string
	Amount      *decimal.Decimal
	Currency    *string
	Priority    *models.Priority
	PartnerID   *string
	BudgetID    *string
	InvoiceRef  *string
	Notes       *string
}

// PlannedItemServicer defines the contract for planned item business logic.
type PlannedItemServicer interface {
	CreatePlannedItem(in PlannedItemInput) (*models.PlannedItem, error)
	GetPlannedItemByID(id string) (*models.PlannedItem, error)
	ListPlannedItems(filter filters.PlannedItems, page pagination.PageRequest) (*pagination.PageResponse[models.PlannedItem], error)
	UpdatePlannedItem(id string, upd PlannedItemUpdate) (*models.PlannedItem, error)
	MarkPaid(id string, actualDate *time.Time) (*models.PlannedItem, error)
	CancelPlannedItem(id string) (*models.PlannedItem, error)
	ResetToPlanned(id string) (*models.PlannedItem, error)
	DeletePlannedItem(id string) error
}

// RecurringItemInput carries the fields of a new recurring item.
type RecurringItemInput struct {
	Description    string
	Type           models.FlowType
	CategoryID     string
	Amount         decimal.Decimal
	Currency       string
	PartnerID      *string
	RecurrenceUnit models.RecurrenceUnit
	Interval       int
	StartDate      time.Time
	EndDate        *time.Time
	AutoGenerate   bool
	DaysInAdvance  int
	Notes          string
}

// RecurringItemUpdate holds optional recurring item changes.
type RecurringItemUpdate struct {
	Description    *string
	CategoryID     *string
	Amount         *decimal.Decimal
	Currency       *string
	PartnerID      *string
	RecurrenceUnit *models.RecurrenceUnit
	Interval       *int
	StartDate      *time.Time
	EndDate        *time.Time
	ClearEndDate   bool
	AutoGenerate   *bool
	DaysInAdvance  *int
	Notes          *string
}

// SweepResult summarizes one scheduler sweep.
type SweepResult struct {
	ReferenceTime time.Time `json:"reference_time"`
	Generated     int       `json:"generated"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	Expired       int       `json:"expired"`
}

// RecurringItemServicer defines the contract for the recurrence scheduler.
type RecurringItemServicer interface {
	CreateRecurringItem(in RecurringItemInput) (*models.RecurringItem, error)
	GetRecurringItemByID(id string) (*models.RecurringItem, error)
	ListRecurringItems(filter filters.RecurringItems, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringItem], error)
	UpdateRecurringItem(id string, upd RecurringItemUpdate) (*models.RecurringItem, error)
	DeleteRecurringItem(id string) error
	SuspendRecurringItem(id string) (*models.RecurringItem, error)
	ActivateRecurringItem(id string) (*models.RecurringItem, error)
	ExpireRecurringItem(id string) (*models.RecurringItem, error)
	GetNextDate(id string, ref time.Time) (*time.Time, error)
	GenerateNow(ctx context.Context, id string) (*models.PlannedItem, error)
	Sweep(ctx context.Context, ref time.Time) (*SweepResult, error)
}

// BudgetProgress is a budget's current consumption.
type BudgetProgress struct {
	BudgetID      string              `json:"budget_id"`
	PlannedAmount decimal.Decimal     `json:"planned_amount"`
	UsedAmount    decimal.Decimal     `json:"used_amount"`
	Remaining     decimal.Decimal     `json:"remaining_amount"`
	UsagePercent  decimal.Decimal     `json:"usage_percent"`
	Variance      decimal.Decimal     `json:"variance"`
	Status        models.BudgetStatus `json:"status"`
}

// BudgetInput carries the fields of a new budget.
type BudgetInput struct {
	Name          string
	CategoryID    string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	PlannedAmount decimal.Decimal
	Currency      string
	Notes         string
}

// BudgetUpdate holds optional budget changes.
type BudgetUpdate struct {
	Name          *string
	CategoryID    *string
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
	PlannedAmount *decimal.Decimal
	Currency      *string
	Notes         *string
}

// BudgetServicer defines the contract for budget business logic.
type BudgetServicer interface {
	CreateBudget(in BudgetInput) (*models.Budget, error)
	GetBudgetByID(id string) (*models.Budget, error)
	ListBudgets(filter filters.Budgets, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	UpdateBudget(id string, upd BudgetUpdate) (*models.Budget, error)
	ConfirmBudget(id string) (*models.Budget, error)
	CloseBudget(id string) (*models.Budget, error)
	ReopenBudget(id string) (*models.Budget, error)
	SetBudgetToDraft(id string) (*models.Budget, error)
	DeleteBudget(id string) error
	GetBudgetProgress(id string) (*BudgetProgress, error)
	RecomputeBudgets(ids []string) ([]models.Budget, error)
}

// OverviewParams are the filters of an overview report.
type OverviewParams struct {
	Name                 string
	DateFrom             *time.Time
	DateTo               *time.Time
	TypeFilter           models.TypeFilter
	StateFilter          models.StateFilter
	CategoryID           *string
	IncludeSubcategories bool
	PartnerIDs           []string
	IncludePlannedItems  *bool
	IncludeInvoices      *bool
}

// ForecastParams are the filters of a forecast report.
type ForecastParams struct {
	Name                 string
	DateFrom             *time.Time
	DateTo               *time.Time
	OpeningBalance       decimal.Decimal
	CategoryID           *string
	IncludeSubcategories bool
	IncludePlanned       *bool
	GroupBy              models.GroupBy
}

// BudgetAnalysisParams are the filters of a budget analysis report.
type BudgetAnalysisParams struct {
	Name                 string
	DateFrom             *time.Time
	DateTo               *time.Time
	CategoryID           *string
	IncludeSubcategories bool
	StateFilter          models.BudgetStateFilter
	VarianceFilter       models.VarianceFilter
}

// ForecastView is a loaded forecast with its period summaries.
type ForecastView struct {
	Report  *models.ForecastReport `json:"report"`
	Periods []reporting.Period     `json:"periods"`
}

// ReportServicer defines the contract for the report aggregator.
type ReportServicer interface {
	CreateOverview(ctx context.Context, p OverviewParams) (*models.OverviewReport, error)
	LoadOverview(ctx context.Context, id string) (*models.OverviewReport, error)
	GetOverview(id string) (*models.OverviewReport, error)

	CreateForecast(ctx context.Context, p ForecastParams) (*ForecastView, error)
	LoadForecast(ctx context.Context, id string) (*ForecastView, error)
	GetForecast(id string) (*ForecastView, error)

	CreateBudgetAnalysis(ctx context.Context, p BudgetAnalysisParams) (*models.BudgetReport, error)
	LoadBudgetAnalysis(ctx context.Context, id string) (*models.BudgetReport, error)
	GetBudgetAnalysis(id string) (*models.BudgetReport, error)
}

// AuditLogFilter narrows an audit log listing. Empty fields add no condition.
type AuditLogFilter struct {
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(actor, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
	ListAuditLogs(filter AuditLogFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}
