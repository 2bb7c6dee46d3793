package testutil_test

import (
	"testing"

	"cashplan/internal/errors"
	"cashplan/internal/models"
	"cashplan/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	var count int64
	for _, table := range []string{
		"categories", "planned_items", "recurring_items", "budgets", "invoices",
		"overview_reports", "overview_lines", "forecast_reports", "forecast_lines",
		"budget_reports", "budget_report_lines", "audit_logs",
	} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDBIsolation(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestCategory(t, first, models.FlowPayment)

	var count int64
	if err := second.Model(&models.Category{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected isolated database to be empty, got %d categories", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	category := testutil.CreateTestCategory(t, db, models.FlowPayment)
	if category.ID == "" {
		t.Fatal("category should have an ID")
	}

	item := testutil.CreateTestPlannedItem(t, db, category, "250", testutil.Date(2025, 10, 1), models.PlannedItemPlanned)
	testutil.AssertDecimal(t, item.SignedAmount, "-250", "signed amount")

	budget := testutil.CreateTestBudget(t, db, category.ID, "1000", testutil.Date(2025, 10, 1), testutil.Date(2025, 10, 31))
	testutil.AssertDecimal(t, budget.RemainingAmount, "1000", "remaining")

	rec := testutil.CreateTestRecurringItem(t, db, category, testutil.Date(2025, 1, 1))
	if rec.State != models.RecurringActive {
		t.Errorf("expected active recurring item, got %s", rec.State)
	}

	inv := testutil.CreateTestInvoice(t, db, models.InvoiceSupplier, models.InvoiceOpen, "80", testutil.Date(2025, 10, 5))
	if inv.SupplierNumber == "" {
		t.Error("expected supplier number on supplier invoice")
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrCategoryNotFound, "custom message")
	testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
