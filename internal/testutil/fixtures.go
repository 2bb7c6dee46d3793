package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cashplan/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date builds a UTC calendar day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Amount parses a decimal literal, failing the test on bad input.
func Amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

// CreateTestCategory creates a root category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, categoryType models.FlowType) *models.Category {
	t.Helper()
	return CreateTestChildCategory(t, db, categoryType, nil)
}

// CreateTestChildCategory creates a category under parentID.
func CreateTestChildCategory(t *testing.T, db *gorm.DB, categoryType models.FlowType, parentID *string) *models.Category {
	t.Helper()

	n := nextID()
	category := &models.Category{
		Name:     fmt.Sprintf("Test Category %d", n),
		Code:     fmt.Sprintf("CAT%d", n),
		Type:     categoryType,
		ParentID: parentID,
		Sequence: 10,
		Active:   true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestPlannedItem creates a planned item in the category's type and the given state.
func CreateTestPlannedItem(t *testing.T, db *gorm.DB, category *models.Category, amount string, date time.Time, state models.PlannedItemState) *models.PlannedItem {
	t.Helper()

	item := &models.PlannedItem{
		Description: fmt.Sprintf("Test Item %d", nextID()),
		Type:        category.Type,
		PlannedDate: models.Day(date),
		CategoryID:  category.ID,
		Amount:      Amount(t, amount),
		Currency:    "USD",
		Priority:    models.PriorityMedium,
		State:       state,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create test planned item: %v", err)
	}
	return item
}

// CreateTestBudget creates a confirmed budget without recomputing usage.
func CreateTestBudget(t *testing.T, db *gorm.DB, categoryID string, planned string, from, to time.Time) *models.Budget {
	t.Helper()

	amount := Amount(t, planned)
	budget := &models.Budget{
		Name:            fmt.Sprintf("Test Budget %d", nextID()),
		CategoryID:      categoryID,
		PeriodStart:     models.Day(from),
		PeriodEnd:       models.Day(to),
		PlannedAmount:   amount,
		UsedAmount:      decimal.Zero,
		RemainingAmount: amount,
		Currency:        "USD",
		State:           models.BudgetConfirmed,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestRecurringItem creates an active monthly recurring item.
func CreateTestRecurringItem(t *testing.T, db *gorm.DB, category *models.Category, start time.Time) *models.RecurringItem {
	t.Helper()

	item := &models.RecurringItem{
		Description:    fmt.Sprintf("Test Recurring %d", nextID()),
		Type:           category.Type,
		CategoryID:     category.ID,
		Amount:         Amount(t, "100"),
		Currency:       "USD",
		RecurrenceUnit: models.RecurrenceMonth,
		Interval:       1,
		StartDate:      models.Day(start),
		AutoGenerate:   true,
		DaysInAdvance:  0,
		State:          models.RecurringActive,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create test recurring item: %v", err)
	}
	return item
}

// CreateTestInvoice creates an invoice in the invoices read table.
func CreateTestInvoice(t *testing.T, db *gorm.DB, direction models.InvoiceDirection, state models.InvoiceState, residual string, due time.Time) *models.Invoice {
	t.Helper()

	n := nextID()
	amount := Amount(t, residual)
	inv := &models.Invoice{
		Number:      fmt.Sprintf("INV/%d", n),
		Direction:   direction,
		State:       state,
		DueDate:     models.Day(due),
		AmountTotal: amount,
		Residual:    amount,
		Currency:    "USD",
	}
	if direction == models.InvoiceSupplier {
		inv.SupplierNumber = fmt.Sprintf("SUP-%d", n)
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("failed to create test invoice: %v", err)
	}
	return inv
}
