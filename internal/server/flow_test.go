package server

import (
	"fmt"
	"net/http"
	"testing"

	"cashplan/internal/middleware"
)

func TestHealth(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/health", "")
	mustStatus(t, rec, http.StatusOK)
	if parseJSON(t, rec)["status"] != "ok" {
		t.Errorf("expected status ok, got %s", rec.Body.String())
	}
}

func TestCategoryFlow_HierarchyAndDeletion(t *testing.T) {
	app := setupApp(t)

	parentID := app.createCategory(t, `{"name":"Operations","code":"OPS","type":"payment"}`)
	childID := app.createCategory(t,
		fmt.Sprintf(`{"name":"Rent","code":"OPS.RENT","parent_id":%q}`, parentID))

	// A child without an explicit type inherits its parent's.
	rec := app.request("GET", "/api/v1/categories/"+childID, "")
	mustStatus(t, rec, http.StatusOK)
	if got := object(t, parseJSON(t, rec), "category")["type"]; got != "payment" {
		t.Errorf("expected inherited type payment, got %v", got)
	}

	rec = app.request("GET", "/api/v1/categories/"+childID+"/path", "")
	mustStatus(t, rec, http.StatusOK)
	if got := parseJSON(t, rec)["full_path"]; got != "Operations / Rent" {
		t.Errorf("expected full path 'Operations / Rent', got %v", got)
	}

	// Moving the parent under its own child would create a cycle.
	rec = app.request("PUT", "/api/v1/categories/"+parentID+"/parent",
		fmt.Sprintf(`{"parent_id":%q}`, childID))
	mustStatus(t, rec, http.StatusBadRequest)

	rec = app.request("DELETE", "/api/v1/categories/"+parentID, "")
	mustStatus(t, rec, http.StatusConflict)

	app.createPlannedItem(t,
		fmt.Sprintf(`{"description":"March rent","planned_date":"2026-03-01","category_id":%q,"amount":"1500.00"}`, childID))

	rec = app.request("DELETE", "/api/v1/categories/"+childID, "")
	mustStatus(t, rec, http.StatusConflict)
	if code := object(t, parseJSON(t, rec), "error")["code"]; code != "CATEGORY_IN_USE" {
		t.Errorf("expected CATEGORY_IN_USE, got %v", code)
	}
}

func TestPlannedItemFlow_TypeMismatchAndLifecycle(t *testing.T) {
	app := setupApp(t)

	incomeID := app.createCategory(t, `{"name":"Sales","code":"SALES","type":"income"}`)

	rec := app.request("POST", "/api/v1/planned-items",
		fmt.Sprintf(`{"description":"Refund","type":"payment","planned_date":"2026-03-02","category_id":%q,"amount":"10"}`, incomeID))
	mustStatus(t, rec, http.StatusBadRequest)

	itemID := app.createPlannedItem(t,
		fmt.Sprintf(`{"description":"Invoice 42","planned_date":"2026-03-02","category_id":%q,"amount":"250.00"}`, incomeID))

	rec = app.request("POST", "/api/v1/planned-items/"+itemID+"/pay", `{"actual_date":"2026-03-03"}`)
	mustStatus(t, rec, http.StatusOK)
	item := object(t, parseJSON(t, rec), "planned_item")
	if item["state"] != "paid" {
		t.Errorf("expected state paid, got %v", item["state"])
	}
	assertAmount(t, item, "signed_amount", "250")

	rec = app.request("POST", "/api/v1/planned-items/"+itemID+"/cancel", "")
	mustStatus(t, rec, http.StatusOK)

	// Cancelled is terminal.
	rec = app.request("POST", "/api/v1/planned-items/"+itemID+"/reset", "")
	mustStatus(t, rec, http.StatusConflict)
}

func TestBudgetFlow_UsageFollowsPlannedItems(t *testing.T) {
	app := setupApp(t)

	categoryID := app.createCategory(t, `{"name":"Travel","code":"TRAVEL","type":"payment"}`)

	rec := app.request("POST", "/api/v1/budgets",
		fmt.Sprintf(`{"name":"Q1 travel","category_id":%q,"period_start":"2026-01-01","period_end":"2026-03-31","planned_amount":"1000"}`, categoryID))
	mustStatus(t, rec, http.StatusCreated)
	budgetID := object(t, parseJSON(t, rec), "budget")["id"].(string)

	inside := app.createPlannedItem(t,
		fmt.Sprintf(`{"description":"Flights","planned_date":"2026-02-10","category_id":%q,"amount":"400"}`, categoryID))
	app.createPlannedItem(t,
		fmt.Sprintf(`{"description":"Hotel","planned_date":"2026-03-31","category_id":%q,"amount":"200"}`, categoryID))
	app.createPlannedItem(t,
		fmt.Sprintf(`{"description":"Later trip","planned_date":"2026-04-01","category_id":%q,"amount":"999"}`, categoryID))

	rec = app.request("GET", "/api/v1/budgets/"+budgetID, "")
	mustStatus(t, rec, http.StatusOK)
	budget := object(t, parseJSON(t, rec), "budget")
	assertAmount(t, budget, "used_amount", "600")
	assertAmount(t, budget, "remaining_amount", "400")

	rec = app.request("POST", "/api/v1/planned-items/"+inside+"/cancel", "")
	mustStatus(t, rec, http.StatusOK)

	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/progress", "")
	mustStatus(t, rec, http.StatusOK)
	progress := parseJSON(t, rec)
	assertAmount(t, progress, "used_amount", "200")
	assertAmount(t, progress, "remaining_amount", "800")

	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/confirm", "")
	mustStatus(t, rec, http.StatusOK)
	if got := object(t, parseJSON(t, rec), "budget")["state"]; got != "confirmed" {
		t.Errorf("expected confirmed, got %v", got)
	}

	rec = app.request("POST", "/api/v1/budgets/recompute", "")
	mustStatus(t, rec, http.StatusOK)
}

func TestRecurringFlow_SweepIsIdempotent(t *testing.T) {
	app := setupApp(t)

	categoryID := app.createCategory(t, `{"name":"Payroll","code":"PAYROLL","type":"payment"}`)

	rec := app.request("POST", "/api/v1/recurring-items",
		fmt.Sprintf(`{"description":"Salaries","category_id":%q,"amount":"3000","recurrence_unit":"month","start_date":"2026-03-05","days_in_advance":10}`, categoryID))
	mustStatus(t, rec, http.StatusCreated)
	recurringID := object(t, parseJSON(t, rec), "recurring_item")["id"].(string)

	rec = app.request("GET", "/api/v1/recurring-items/"+recurringID+"/next-date?after=2026-03-05", "")
	mustStatus(t, rec, http.StatusOK)
	if got := parseJSON(t, rec)["next_date"]; got != "2026-04-05T00:00:00Z" {
		t.Errorf("expected next date 2026-04-05, got %v", got)
	}

	sweep := `{"reference_time":"2026-03-01T00:00:00Z"}`

	rec = app.request("POST", "/api/v1/pipeline/sweep", sweep)
	mustStatus(t, rec, http.StatusUnauthorized)

	rec = app.request("POST", "/api/v1/pipeline/sweep", sweep, middleware.PipelineKeyHeader, testPipelineKey)
	mustStatus(t, rec, http.StatusOK)
	if got := parseJSON(t, rec)["generated"]; got != float64(1) {
		t.Fatalf("expected 1 generated item, got %v", got)
	}

	rec = app.request("POST", "/api/v1/pipeline/sweep", sweep, middleware.PipelineKeyHeader, testPipelineKey)
	mustStatus(t, rec, http.StatusOK)
	result := parseJSON(t, rec)
	if result["generated"] != float64(0) || result["skipped"] != float64(1) {
		t.Errorf("expected second sweep to skip, got %v", result)
	}

	rec = app.request("GET", "/api/v1/planned-items?recurring_item_id="+recurringID, "")
	mustStatus(t, rec, http.StatusOK)
	if got := parseJSON(t, rec)["total_items"]; got != float64(1) {
		t.Errorf("expected 1 generated planned item, got %v", got)
	}

	rec = app.request("POST", "/api/v1/recurring-items/"+recurringID+"/suspend", "")
	mustStatus(t, rec, http.StatusOK)

	rec = app.request("POST", "/api/v1/recurring-items/"+recurringID+"/generate", "")
	mustStatus(t, rec, http.StatusConflict)
}

func TestReportFlow_ForecastRunningBalance(t *testing.T) {
	app := setupApp(t)

	salesID := app.createCategory(t, `{"name":"Sales","code":"SALES","type":"income"}`)
	rentID := app.createCategory(t, `{"name":"Rent","code":"RENT","type":"payment"}`)

	app.createPlannedItem(t,
		fmt.Sprintf(`{"description":"Rent","planned_date":"2026-03-05","category_id":%q,"amount":"200"}`, rentID))
	app.createPlannedItem(t,
		fmt.Sprintf(`{"description":"Customer A","planned_date":"2026-03-10","category_id":%q,"amount":"500"}`, salesID))
	cancelled := app.createPlannedItem(t,
		fmt.Sprintf(`{"description":"Customer B","planned_date":"2026-03-12","category_id":%q,"amount":"900"}`, salesID))
	mustStatus(t, app.request("POST", "/api/v1/planned-items/"+cancelled+"/cancel", ""), http.StatusOK)

	rec := app.request("POST", "/api/v1/reports/forecast",
		`{"date_from":"2026-03-01","date_to":"2026-03-31","opening_balance":"1000","group_by":"month"}`)
	mustStatus(t, rec, http.StatusCreated)
	view := parseJSON(t, rec)
	report := object(t, view, "report")
	assertAmount(t, report, "closing_balance", "1300")
	assertAmount(t, report, "net_cashflow", "300")
	if report["line_count"] != float64(2) {
		t.Errorf("expected 2 lines, got %v", report["line_count"])
	}
	periods, ok := view["periods"].([]interface{})
	if !ok || len(periods) != 1 {
		t.Fatalf("expected one monthly period, got %v", view["periods"])
	}

	rec = app.request("POST", "/api/v1/reports/overview",
		`{"date_from":"2026-03-01","date_to":"2026-03-31"}`)
	mustStatus(t, rec, http.StatusCreated)
	overview := object(t, parseJSON(t, rec), "report")
	assertAmount(t, overview, "total_income", "500")
	assertAmount(t, overview, "total_payment", "200")

	id := overview["id"].(string)
	rec = app.request("GET", "/api/v1/reports/overview/"+id, "")
	mustStatus(t, rec, http.StatusOK)

	rec = app.request("GET", "/api/v1/reports/overview/not-a-uuid", "")
	mustStatus(t, rec, http.StatusBadRequest)
}

func TestMutationsAreAudited(t *testing.T) {
	app := setupApp(t)

	rec := app.request("POST", "/api/v1/categories",
		`{"name":"Taxes","code":"TAX","type":"payment"}`, "X-Actor", "treasurer")
	mustStatus(t, rec, http.StatusCreated)

	var actors []string
	if err := app.DB.Table("audit_logs").Pluck("actor", &actors).Error; err != nil {
		t.Fatalf("failed to read audit log: %v", err)
	}
	if len(actors) != 1 || actors[0] != "treasurer" {
		t.Errorf("expected one audit entry by treasurer, got %v", actors)
	}

	rec = app.request("GET", "/api/v1/audit-logs?actor=treasurer&resource_type=category", "")
	mustStatus(t, rec, http.StatusOK)
	if got := parseJSON(t, rec)["total_items"]; got != float64(1) {
		t.Errorf("expected 1 audit entry, got %v", got)
	}
}
