package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/models"
	"cashplan/internal/reporting"
	"cashplan/internal/services"
)

// --- mock report service ---

type mockReportService struct {
	createOverviewFn       func(ctx context.Context, p services.OverviewParams) (*models.OverviewReport, error)
	loadOverviewFn         func(ctx context.Context, id string) (*models.OverviewReport, error)
	getOverviewFn          func(id string) (*models.OverviewReport, error)
	createForecastFn       func(ctx context.Context, p services.ForecastParams) (*services.ForecastView, error)
	getForecastFn          func(id string) (*services.ForecastView, error)
	createBudgetAnalysisFn func(ctx context.Context, p services.BudgetAnalysisParams) (*models.BudgetReport, error)
	loadBudgetAnalysisFn   func(ctx context.Context, id string) (*models.BudgetReport, error)
}

func (m *mockReportService) CreateOverview(ctx context.Context, p services.OverviewParams) (*models.OverviewReport, error) {
	if m.createOverviewFn != nil {
		return m.createOverviewFn(ctx, p)
	}
	return &models.OverviewReport{}, nil
}

func (m *mockReportService) LoadOverview(ctx context.Context, id string) (*models.OverviewReport, error) {
	if m.loadOverviewFn != nil {
		return m.loadOverviewFn(ctx, id)
	}
	return &models.OverviewReport{Base: models.Base{ID: id}}, nil
}

func (m *mockReportService) GetOverview(id string) (*models.OverviewReport, error) {
	if m.getOverviewFn != nil {
		return m.getOverviewFn(id)
	}
	return &models.OverviewReport{Base: models.Base{ID: id}}, nil
}

func (m *mockReportService) CreateForecast(ctx context.Context, p services.ForecastParams) (*services.ForecastView, error) {
	if m.createForecastFn != nil {
		return m.createForecastFn(ctx, p)
	}
	return &services.ForecastView{Report: &models.ForecastReport{}}, nil
}

func (m *mockReportService) LoadForecast(_ context.Context, id string) (*services.ForecastView, error) {
	return &services.ForecastView{Report: &models.ForecastReport{Base: models.Base{ID: id}}}, nil
}

func (m *mockReportService) GetForecast(id string) (*services.ForecastView, error) {
	if m.getForecastFn != nil {
		return m.getForecastFn(id)
	}
	return &services.ForecastView{Report: &models.ForecastReport{Base: models.Base{ID: id}}}, nil
}

func (m *mockReportService) CreateBudgetAnalysis(ctx context.Context, p services.BudgetAnalysisParams) (*models.BudgetReport, error) {
	if m.createBudgetAnalysisFn != nil {
		return m.createBudgetAnalysisFn(ctx, p)
	}
	return &models.BudgetReport{}, nil
}

func (m *mockReportService) LoadBudgetAnalysis(ctx context.Context, id string) (*models.BudgetReport, error) {
	if m.loadBudgetAnalysisFn != nil {
		return m.loadBudgetAnalysisFn(ctx, id)
	}
	return &models.BudgetReport{Base: models.Base{ID: id}}, nil
}

func (m *mockReportService) GetBudgetAnalysis(id string) (*models.BudgetReport, error) {
	return &models.BudgetReport{Base: models.Base{ID: id}}, nil
}

var _ services.ReportServicer = (*mockReportService)(nil)

func setupReportRouter(handler *ReportHandler) *gin.Engine {
	r := gin.New()
	r.POST("/reports/overview", handler.CreateOverview)
	r.POST("/reports/overview/:id/load", handler.LoadOverview)
	r.GET("/reports/overview/:id", handler.GetOverview)
	r.POST("/reports/forecast", handler.CreateForecast)
	r.POST("/reports/forecast/:id/load", handler.LoadForecast)
	r.GET("/reports/forecast/:id", handler.GetForecast)
	r.POST("/reports/budget-analysis", handler.CreateBudgetAnalysis)
	r.POST("/reports/budget-analysis/:id/load", handler.LoadBudgetAnalysis)
	r.GET("/reports/budget-analysis/:id", handler.GetBudgetAnalysis)
	return r
}

func TestReportHandler_CreateOverview(t *testing.T) {
	t.Run("empty body leaves defaults to the service", func(t *testing.T) {
		var got services.OverviewParams
		svc := &mockReportService{
			createOverviewFn: func(_ context.Context, p services.OverviewParams) (*models.OverviewReport, error) {
				got = p
				return &models.OverviewReport{Base: models.Base{ID: testID}, Name: "Cash Flow Overview"}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/overview", "")

		assertStatus(t, rec, http.StatusCreated)
		if got.DateFrom != nil || got.DateTo != nil || got.IncludeInvoices != nil {
			t.Errorf("expected unset params, got %+v", got)
		}
		report := parseJSON(t, rec)["report"].(map[string]interface{})
		if report["name"] != "Cash Flow Overview" {
			t.Errorf("unexpected name %v", report["name"])
		}
	})

	t.Run("passes filters", func(t *testing.T) {
		var got services.OverviewParams
		svc := &mockReportService{
			createOverviewFn: func(_ context.Context, p services.OverviewParams) (*models.OverviewReport, error) {
				got = p
				return &models.OverviewReport{}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/overview",
			`{"date_from":"2025-10-01","date_to":"2025-10-31","type_filter":"payment","state_filter":"planned","include_invoices":false,"partner_ids":["acme"]}`)

		assertStatus(t, rec, http.StatusCreated)
		if got.TypeFilter != models.TypeFilterPayment || got.StateFilter != models.StateFilterPlanned {
			t.Errorf("unexpected filters %s/%s", got.TypeFilter, got.StateFilter)
		}
		if got.IncludeInvoices == nil || *got.IncludeInvoices {
			t.Errorf("expected invoices excluded, got %v", got.IncludeInvoices)
		}
		if got.DateTo == nil || !got.DateTo.Equal(time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected date_to %v", got.DateTo)
		}
		if len(got.PartnerIDs) != 1 || got.PartnerIDs[0] != "acme" {
			t.Errorf("unexpected partners %v", got.PartnerIDs)
		}
	})

	t.Run("returns 400 on unknown filter value", func(t *testing.T) {
		r := setupReportRouter(NewReportHandler(&mockReportService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/overview", `{"state_filter":"cancelled"}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("returns 502 when invoice feed fails", func(t *testing.T) {
		svc := &mockReportService{
			createOverviewFn: func(_ context.Context, _ services.OverviewParams) (*models.OverviewReport, error) {
				return nil, apperrors.ErrInvoiceFeedUnavailable
			},
		}
		r := setupReportRouter(NewReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/overview", `{}`)

		assertStatus(t, rec, http.StatusBadGateway)
		assertErrorCode(t, parseJSON(t, rec), "INVOICE_FEED_UNAVAILABLE")
	})
}

func TestReportHandler_OverviewLoadAndGet(t *testing.T) {
	t.Run("load returns 404 for unknown report", func(t *testing.T) {
		svc := &mockReportService{
			loadOverviewFn: func(_ context.Context, _ string) (*models.OverviewReport, error) {
				return nil, apperrors.ErrReportNotFound
			},
		}
		r := setupReportRouter(NewReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/overview/"+testID+"/load", "")

		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "REPORT_NOT_FOUND")
	})

	t.Run("get returns stored report", func(t *testing.T) {
		r := setupReportRouter(NewReportHandler(&mockReportService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/reports/overview/"+testID, "")

		assertStatus(t, rec, http.StatusOK)
		report := parseJSON(t, rec)["report"].(map[string]interface{})
		if report["id"] != testID {
			t.Errorf("unexpected id %v", report["id"])
		}
	})
}

func TestReportHandler_Forecast(t *testing.T) {
	t.Run("create passes opening balance and grouping", func(t *testing.T) {
		var got services.ForecastParams
		svc := &mockReportService{
			createForecastFn: func(_ context.Context, p services.ForecastParams) (*services.ForecastView, error) {
				got = p
				return &services.ForecastView{
					Report: &models.ForecastReport{
						Base:           models.Base{ID: testID},
						OpeningBalance: p.OpeningBalance,
						ClosingBalance: decimal.NewFromInt(13000),
					},
					Periods: []reporting.Period{{Start: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)}},
				}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/forecast", `{"opening_balance":"10000","group_by":"week"}`)

		assertStatus(t, rec, http.StatusCreated)
		if !got.OpeningBalance.Equal(decimal.NewFromInt(10000)) || got.GroupBy != models.GroupByWeek {
			t.Errorf("unexpected params %+v", got)
		}
		result := parseJSON(t, rec)
		report := result["report"].(map[string]interface{})
		if report["closing_balance"] != "13000" {
			t.Errorf("expected closing 13000, got %v", report["closing_balance"])
		}
		if periods := result["periods"].([]interface{}); len(periods) != 1 {
			t.Errorf("expected 1 period, got %d", len(periods))
		}
	})

	t.Run("missing opening balance is zero", func(t *testing.T) {
		var got services.ForecastParams
		svc := &mockReportService{
			createForecastFn: func(_ context.Context, p services.ForecastParams) (*services.ForecastView, error) {
				got = p
				return &services.ForecastView{Report: &models.ForecastReport{}}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(svc, &mockAuditService{}))

		assertStatus(t, doRequest(r, "POST", "/reports/forecast", `{}`), http.StatusCreated)
		if !got.OpeningBalance.IsZero() {
			t.Errorf("expected zero opening balance, got %s", got.OpeningBalance)
		}
	})

	t.Run("returns 400 on invalid grouping", func(t *testing.T) {
		r := setupReportRouter(NewReportHandler(&mockReportService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/forecast", `{"group_by":"year"}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("get and load", func(t *testing.T) {
		r := setupReportRouter(NewReportHandler(&mockReportService{}, &mockAuditService{}))

		assertStatus(t, doRequest(r, "GET", "/reports/forecast/"+testID, ""), http.StatusOK)
		assertStatus(t, doRequest(r, "POST", "/reports/forecast/"+testID+"/load", ""), http.StatusOK)
	})
}

func TestReportHandler_BudgetAnalysis(t *testing.T) {
	t.Run("create passes filters", func(t *testing.T) {
		var got services.BudgetAnalysisParams
		svc := &mockReportService{
			createBudgetAnalysisFn: func(_ context.Context, p services.BudgetAnalysisParams) (*models.BudgetReport, error) {
				got = p
				return &models.BudgetReport{}, nil
			},
		}
		r := setupReportRouter(NewReportHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/budget-analysis",
			`{"state_filter":"all","variance_filter":"over","category_id":"`+testOtherID+`","include_subcategories":true}`)

		assertStatus(t, rec, http.StatusCreated)
		if got.StateFilter != models.BudgetStateFilterAll || got.VarianceFilter != models.VarianceOver {
			t.Errorf("unexpected filters %s/%s", got.StateFilter, got.VarianceFilter)
		}
		if got.CategoryID == nil || !got.IncludeSubcategories {
			t.Errorf("unexpected category scope %+v", got)
		}
	})

	t.Run("returns 400 on bad date", func(t *testing.T) {
		r := setupReportRouter(NewReportHandler(&mockReportService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/reports/budget-analysis", `{"date_from":"2025-13-01"}`)

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("load and get", func(t *testing.T) {
		r := setupReportRouter(NewReportHandler(&mockReportService{}, &mockAuditService{}))

		assertStatus(t, doRequest(r, "POST", "/reports/budget-analysis/"+testID+"/load", ""), http.StatusOK)
		assertStatus(t, doRequest(r, "GET", "/reports/budget-analysis/"+testID, ""), http.StatusOK)
	})
}
