package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/filters"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
	"cashplan/internal/services"
)

// --- mock recurring service ---

type mockRecurringService struct {
	createFn   func(in services.RecurringItemInput) (*models.RecurringItem, error)
	getFn      func(id string) (*models.RecurringItem, error)
	listFn     func(filter filters.RecurringItems, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringItem], error)
	updateFn   func(id string, upd services.RecurringItemUpdate) (*models.RecurringItem, error)
	deleteFn   func(id string) error
	suspendFn  func(id string) (*models.RecurringItem, error)
	activateFn func(id string) (*models.RecurringItem, error)
	expireFn   func(id string) (*models.RecurringItem, error)
	nextDateFn func(id string, ref time.Time) (*time.Time, error)
	generateFn func(ctx context.Context, id string) (*models.PlannedItem, error)
	sweepFn    func(ctx context.Context, ref time.Time) (*services.SweepResult, error)
}

func (m *mockRecurringService) CreateRecurringItem(in services.RecurringItemInput) (*models.RecurringItem, error) {
	if m.createFn != nil {
		return m.createFn(in)
	}
	return &models.RecurringItem{}, nil
}

func (m *mockRecurringService) GetRecurringItemByID(id string) (*models.RecurringItem, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return &models.RecurringItem{}, nil
}

func (m *mockRecurringService) ListRecurringItems(filter filters.RecurringItems, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringItem], error) {
	if m.listFn != nil {
		return m.listFn(filter, page)
	}
	resp := pagination.NewPageResponse([]models.RecurringItem{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockRecurringService) UpdateRecurringItem(id string, upd services.RecurringItemUpdate) (*models.RecurringItem, error) {
	if m.updateFn != nil {
		return m.updateFn(id, upd)
	}
	return &models.RecurringItem{}, nil
}

func (m *mockRecurringService) DeleteRecurringItem(id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(id)
	}
	return nil
}

func (m *mockRecurringService) SuspendRecurringItem(id string) (*models.RecurringItem, error) {
	if m.suspendFn != nil {
		return m.suspendFn(id)
	}
	return &models.RecurringItem{State: models.RecurringSuspended}, nil
}

func (m *mockRecurringService) ActivateRecurringItem(id string) (*models.RecurringItem, error) {
	if m.activateFn != nil {
		return m.activateFn(id)
	}
	return &models.RecurringItem{State: models.RecurringActive}, nil
}

func (m *mockRecurringService) ExpireRecurringItem(id string) (*models.RecurringItem, error) {
	if m.expireFn != nil {
		return m.expireFn(id)
	}
	return &models.RecurringItem{State: models.RecurringExpired}, nil
}

func (m *mockRecurringService) GetNextDate(id string, ref time.Time) (*time.Time, error) {
	if m.nextDateFn != nil {
		return m.nextDateFn(id, ref)
	}
	return nil, nil
}

func (m *mockRecurringService) GenerateNow(ctx context.Context, id string) (*models.PlannedItem, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, id)
	}
	return &models.PlannedItem{}, nil
}

func (m *mockRecurringService) Sweep(ctx context.Context, ref time.Time) (*services.SweepResult, error) {
	if m.sweepFn != nil {
		return m.sweepFn(ctx, ref)
	}
	return &services.SweepResult{ReferenceTime: ref}, nil
}

var _ services.RecurringItemServicer = (*mockRecurringService)(nil)

func setupRecurringRouter(handler *RecurringHandler) *gin.Engine {
	r := gin.New()
	r.POST("/recurring-items", handler.CreateRecurringItem)
	r.GET("/recurring-items", handler.GetRecurringItems)
	r.GET("/recurring-items/:id", handler.GetRecurringItem)
	r.PUT("/recurring-items/:id", handler.UpdateRecurringItem)
	r.GET("/recurring-items/:id/next-date", handler.GetNextDate)
	r.POST("/recurring-items/:id/generate", handler.GenerateNow)
	r.POST("/recurring-items/:id/suspend", handler.SuspendRecurringItem)
	r.POST("/recurring-items/:id/activate", handler.ActivateRecurringItem)
	r.POST("/recurring-items/:id/expire", handler.ExpireRecurringItem)
	r.DELETE("/recurring-items/:id", handler.DeleteRecurringItem)
	r.POST("/pipeline/sweep", handler.Sweep)
	return r
}

func newTestRecurringHandler(svc services.RecurringItemServicer, now time.Time) *RecurringHandler {
	h := NewRecurringHandler(svc, &mockAuditService{})
	h.now = func() time.Time { return now }
	return h
}

func TestRecurringHandler_CreateRecurringItem(t *testing.T) {
	t.Run("applies interval and auto generate defaults", func(t *testing.T) {
		var got services.RecurringItemInput
		svc := &mockRecurringService{
			createFn: func(in services.RecurringItemInput) (*models.RecurringItem, error) {
				got = in
				return &models.RecurringItem{Base: models.Base{ID: testID}}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring-items",
			`{"description":"Rent","category_id":"`+testOtherID+`","amount":"1200","recurrence_unit":"month","start_date":"2025-01-31"}`)

		assertStatus(t, rec, http.StatusCreated)
		if got.Interval != 1 {
			t.Errorf("expected interval 1, got %d", got.Interval)
		}
		if !got.AutoGenerate {
			t.Error("expected auto generate on by default")
		}
		if got.StartDate.Day() != 31 || got.EndDate != nil {
			t.Errorf("unexpected dates %v..%v", got.StartDate, got.EndDate)
		}
	})

	t.Run("keeps explicit auto generate off", func(t *testing.T) {
		var got services.RecurringItemInput
		svc := &mockRecurringService{
			createFn: func(in services.RecurringItemInput) (*models.RecurringItem, error) {
				got = in
				return &models.RecurringItem{}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring-items",
			`{"description":"Audit","category_id":"`+testOtherID+`","amount":"300","recurrence_unit":"year","interval":2,"start_date":"2025-03-01","end_date":"2029-03-01","auto_generate":false}`)

		assertStatus(t, rec, http.StatusCreated)
		if got.AutoGenerate || got.Interval != 2 || got.EndDate == nil {
			t.Errorf("unexpected input %+v", got)
		}
	})

	t.Run("returns 400 on unknown unit", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring-items",
			`{"description":"Rent","category_id":"`+testOtherID+`","amount":"1200","recurrence_unit":"fortnight","start_date":"2025-01-31"}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("returns 400 on negative lookahead", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring-items",
			`{"description":"Rent","category_id":"`+testOtherID+`","amount":"1200","recurrence_unit":"month","start_date":"2025-01-31","days_in_advance":-1}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestRecurringHandler_GetRecurringItems(t *testing.T) {
	var got filters.RecurringItems
	svc := &mockRecurringService{
		listFn: func(filter filters.RecurringItems, _ pagination.PageRequest) (*pagination.PageResponse[models.RecurringItem], error) {
			got = filter
			resp := pagination.NewPageResponse([]models.RecurringItem{}, 1, 20, 0)
			return &resp, nil
		},
	}
	r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/recurring-items?state=active&auto_generate=false", "")

	assertStatus(t, rec, http.StatusOK)
	if len(got.States) != 1 || got.States[0] != models.RecurringActive {
		t.Errorf("unexpected states %v", got.States)
	}
	if got.AutoGenerate == nil || *got.AutoGenerate {
		t.Errorf("unexpected auto generate filter %v", got.AutoGenerate)
	}

	rec = doRequest(r, "GET", "/recurring-items?auto_generate=maybe", "")
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestRecurringHandler_UpdateRecurringItem(t *testing.T) {
	var got services.RecurringItemUpdate
	svc := &mockRecurringService{
		updateFn: func(_ string, upd services.RecurringItemUpdate) (*models.RecurringItem, error) {
			got = upd
			return &models.RecurringItem{}, nil
		},
	}
	r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "PUT", "/recurring-items/"+testID, `{"clear_end_date":true,"days_in_advance":5}`)

	assertStatus(t, rec, http.StatusOK)
	if !got.ClearEndDate || got.EndDate != nil {
		t.Errorf("expected end date cleared, got %+v", got)
	}
	if got.DaysInAdvance == nil || *got.DaysInAdvance != 5 {
		t.Errorf("unexpected days in advance %v", got.DaysInAdvance)
	}
}

func TestRecurringHandler_GetNextDate(t *testing.T) {
	now := time.Date(2025, 10, 15, 14, 30, 0, 0, time.UTC)

	t.Run("defaults reference to today", func(t *testing.T) {
		var gotRef time.Time
		next := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
		svc := &mockRecurringService{
			nextDateFn: func(_ string, ref time.Time) (*time.Time, error) {
				gotRef = ref
				return &next, nil
			},
		}
		r := setupRecurringRouter(newTestRecurringHandler(svc, now))

		rec := doRequest(r, "GET", "/recurring-items/"+testID+"/next-date", "")

		assertStatus(t, rec, http.StatusOK)
		if !gotRef.Equal(time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected reference %v", gotRef)
		}
		result := parseJSON(t, rec)
		if result["reference_date"] != "2025-10-15" {
			t.Errorf("unexpected reference date %v", result["reference_date"])
		}
		if result["next_date"] != "2025-11-01T00:00:00Z" {
			t.Errorf("unexpected next date %v", result["next_date"])
		}
	})

	t.Run("absent next date is null", func(t *testing.T) {
		r := setupRecurringRouter(newTestRecurringHandler(&mockRecurringService{}, now))

		rec := doRequest(r, "GET", "/recurring-items/"+testID+"/next-date?after=2030-01-01", "")

		assertStatus(t, rec, http.StatusOK)
		result := parseJSON(t, rec)
		if v, ok := result["next_date"]; !ok || v != nil {
			t.Errorf("expected null next_date, got %v", v)
		}
	})
}

func TestRecurringHandler_GenerateNow(t *testing.T) {
	t.Run("returns 201 with planned item", func(t *testing.T) {
		svc := &mockRecurringService{
			generateFn: func(_ context.Context, _ string) (*models.PlannedItem, error) {
				return &models.PlannedItem{
					Base:        models.Base{ID: testOtherID},
					PlannedDate: time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring-items/"+testID+"/generate", "")

		assertStatus(t, rec, http.StatusCreated)
		item := parseJSON(t, rec)["planned_item"].(map[string]interface{})
		if item["id"] != testOtherID {
			t.Errorf("unexpected id %v", item["id"])
		}
	})

	t.Run("returns 409 when not active", func(t *testing.T) {
		svc := &mockRecurringService{
			generateFn: func(_ context.Context, _ string) (*models.PlannedItem, error) {
				return nil, apperrors.ErrRecurringNotActive
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/recurring-items/"+testID+"/generate", "")

		assertStatus(t, rec, http.StatusConflict)
		assertErrorCode(t, parseJSON(t, rec), "RECURRING_NOT_ACTIVE")
	})
}

func TestRecurringHandler_StateTransitions(t *testing.T) {
	audit := &mockAuditService{}
	r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, audit))

	for _, tc := range []struct {
		path, action, state string
	}{
		{"/suspend", "SUSPEND_RECURRING_ITEM", "suspended"},
		{"/activate", "ACTIVATE_RECURRING_ITEM", "active"},
		{"/expire", "EXPIRE_RECURRING_ITEM", "expired"},
	} {
		t.Run(tc.action, func(t *testing.T) {
			rec := doRequest(r, "POST", "/recurring-items/"+testID+tc.path, "")
			assertStatus(t, rec, http.StatusOK)
			item := parseJSON(t, rec)["recurring_item"].(map[string]interface{})
			if item["state"] != tc.state {
				t.Errorf("expected %s, got %v", tc.state, item["state"])
			}
			if entry := audit.last(t); entry.action != tc.action {
				t.Errorf("expected audit %s, got %s", tc.action, entry.action)
			}
		})
	}
}

func TestRecurringHandler_DeleteRecurringItem(t *testing.T) {
	svc := &mockRecurringService{
		deleteFn: func(_ string) error { return apperrors.ErrRecurringItemNotFound },
	}
	r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "DELETE", "/recurring-items/"+testID, "")

	assertStatus(t, rec, http.StatusNotFound)
	assertErrorCode(t, parseJSON(t, rec), "RECURRING_ITEM_NOT_FOUND")
}

func TestRecurringHandler_Sweep(t *testing.T) {
	now := time.Date(2025, 10, 25, 12, 0, 0, 0, time.UTC)

	t.Run("uses clock without body", func(t *testing.T) {
		var gotRef time.Time
		svc := &mockRecurringService{
			sweepFn: func(_ context.Context, ref time.Time) (*services.SweepResult, error) {
				gotRef = ref
				return &services.SweepResult{ReferenceTime: ref, Generated: 2, Skipped: 1}, nil
			},
		}
		r := setupRecurringRouter(newTestRecurringHandler(svc, now))

		rec := doRequest(r, "POST", "/pipeline/sweep", "")

		assertStatus(t, rec, http.StatusOK)
		if !gotRef.Equal(now) {
			t.Errorf("expected %v, got %v", now, gotRef)
		}
		if got := parseJSON(t, rec)["generated"]; got != float64(2) {
			t.Errorf("expected 2 generated, got %v", got)
		}
	})

	t.Run("honours reference time", func(t *testing.T) {
		var gotRef time.Time
		svc := &mockRecurringService{
			sweepFn: func(_ context.Context, ref time.Time) (*services.SweepResult, error) {
				gotRef = ref
				return &services.SweepResult{ReferenceTime: ref}, nil
			},
		}
		r := setupRecurringRouter(newTestRecurringHandler(svc, now))

		rec := doRequest(r, "POST", "/pipeline/sweep", `{"reference_time":"2025-12-01T06:00:00Z"}`)

		assertStatus(t, rec, http.StatusOK)
		if !gotRef.Equal(time.Date(2025, 12, 1, 6, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected reference %v", gotRef)
		}
	})

	t.Run("returns 400 on malformed body", func(t *testing.T) {
		r := setupRecurringRouter(newTestRecurringHandler(&mockRecurringService{}, now))

		rec := doRequest(r, "POST", "/pipeline/sweep", `{"reference_time":"tomorrow"}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})
}
