package services

import (
	"testing"

	"cashplan/internal/pagination"
	"cashplan/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	svc.Log("", "CREATE_CATEGORY", "category", "c1", "10.0.0.1", map[string]interface{}{"code": "RENT"})
	svc.Log("treasurer", "CONFIRM_BUDGET", "budget", "b1", "10.0.0.2", nil)
	svc.Log("treasurer", "CLOSE_BUDGET", "budget", "b1", "10.0.0.2", nil)

	t.Run("missing_actor_defaults", func(t *testing.T) {
		page, err := svc.ListAuditLogs(AuditLogFilter{Actor: DefaultActor}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 {
			t.Fatalf("expected 1 entry for %s, got %d", DefaultActor, page.TotalItems)
		}
		if page.Data[0].Changes != `{"code":"RENT"}` {
			t.Errorf("unexpected changes %q", page.Data[0].Changes)
		}
	})

	t.Run("filter_by_resource", func(t *testing.T) {
		page, err := svc.ListAuditLogs(AuditLogFilter{ResourceType: "budget", ResourceID: "b1"}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Fatalf("expected 2 budget entries, got %d", page.TotalItems)
		}
		if page.Data[0].Action != "CLOSE_BUDGET" {
			t.Errorf("expected newest entry first, got %s", page.Data[0].Action)
		}
	})

	t.Run("filter_by_action", func(t *testing.T) {
		page, err := svc.ListAuditLogs(AuditLogFilter{Action: "CONFIRM_BUDGET"}, pagination.PageRequest{PageSize: 1})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 1 || len(page.Data) != 1 {
			t.Errorf("expected exactly one CONFIRM_BUDGET entry, got %d", page.TotalItems)
		}
	})
}
