package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"cashplan/internal/models"
	"cashplan/internal/services"
)

// ReportHandler handles overview, forecast and budget analysis reports.
type ReportHandler struct {
	reportService services.ReportServicer
	auditService  services.AuditServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer, auditService services.AuditServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService, auditService: auditService}
}

// OverviewRequest holds the overview filters. Omitted dates default to the
// current and next calendar month.
type OverviewRequest struct {
	Name                 string             `json:"name" binding:"omitempty,max=100"`
	DateFrom             *string            `json:"date_from"`
	DateTo               *string            `json:"date_to"`
	TypeFilter           models.TypeFilter  `json:"type_filter" binding:"omitempty,type_filter"`
	StateFilter          models.StateFilter `json:"state_filter" binding:"omitempty,state_filter"`
	CategoryID           *string            `json:"category_id" binding:"omitempty,uuid"`
	IncludeSubcategories bool               `json:"include_subcategories"`
	PartnerIDs           []string           `json:"partner_ids"`
	IncludePlannedItems  *bool              `json:"include_planned_items"`
	IncludeInvoices      *bool              `json:"include_invoices"`
}

// ForecastRequest holds the forecast filters. Omitted dates default to the
// next three months.
type ForecastRequest struct {
	Name                 string           `json:"name" binding:"omitempty,max=100"`
	DateFrom             *string          `json:"date_from"`
	DateTo               *string          `json:"date_to"`
	OpeningBalance       *decimal.Decimal `json:"opening_balance" swaggertype:"string" example:"10000.00"`
	CategoryID           *string          `json:"category_id" binding:"omitempty,uuid"`
	IncludeSubcategories bool             `json:"include_subcategories"`
	IncludePlanned       *bool            `json:"include_planned"`
	GroupBy              models.GroupBy   `json:"group_by" binding:"omitempty,group_by"`
}

// BudgetAnalysisRequest holds the budget analysis filters. Omitted dates
// default to month-to-date.
type BudgetAnalysisRequest struct {
	Name                 string                   `json:"name" binding:"omitempty,max=100"`
	DateFrom             *string                  `json:"date_from"`
	DateTo               *string                  `json:"date_to"`
	CategoryID           *string                  `json:"category_id" binding:"omitempty,uuid"`
	IncludeSubcategories bool                     `json:"include_subcategories"`
	StateFilter          models.BudgetStateFilter `json:"state_filter" binding:"omitempty,budget_state_filter"`
	VarianceFilter       models.VarianceFilter    `json:"variance_filter" binding:"omitempty,variance_filter"`
}

// CreateOverview builds and stores a new overview report.
// @Summary     Create overview report
// @Description Merge planned items and invoices in a window and total them
// @Tags        reports
// @Accept      json
// @Produce     json
// @Param       request body OverviewRequest true "Overview filters"
// @Success     201 {object} models.OverviewReport "Loaded overview"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     502 {object} ErrorResponse "Invoice feed unavailable"
// @Router      /reports/overview [post]
func (h *ReportHandler) CreateOverview(c *gin.Context) {
	var req OverviewRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	from, to, err := parseWindow(req.DateFrom, req.DateTo)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.CreateOverview(c.Request.Context(), services.OverviewParams{
		Name:                 req.Name,
		DateFrom:             from,
		DateTo:               to,
		TypeFilter:           req.TypeFilter,
		StateFilter:          req.StateFilter,
		CategoryID:           req.CategoryID,
		IncludeSubcategories: req.IncludeSubcategories,
		PartnerIDs:           req.PartnerIDs,
		IncludePlannedItems:  req.IncludePlannedItems,
		IncludeInvoices:      req.IncludeInvoices,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "CREATE_OVERVIEW_REPORT", "overview_report", report.ID, c.ClientIP(), nil)

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// LoadOverview rebuilds the lines of a stored overview report.
// @Summary     Reload overview report
// @Tags        reports
// @Produce     json
// @Param       id path string true "Report ID"
// @Success     200 {object} models.OverviewReport "Reloaded overview"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Failure     502 {object} ErrorResponse "Invoice feed unavailable"
// @Router      /reports/overview/{id}/load [post]
func (h *ReportHandler) LoadOverview(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.LoadOverview(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GetOverview returns a stored overview report with its lines.
// @Summary     Get overview report
// @Tags        reports
// @Produce     json
// @Param       id path string true "Report ID"
// @Success     200 {object} models.OverviewReport "Overview"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/overview/{id} [get]
func (h *ReportHandler) GetOverview(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetOverview(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// CreateForecast builds and stores a new forecast report.
// @Summary     Create forecast report
// @Description Project a running balance from an opening balance over planned items
// @Tags        reports
// @Accept      json
// @Produce     json
// @Param       request body ForecastRequest true "Forecast filters"
// @Success     201 {object} services.ForecastView "Loaded forecast with period summaries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /reports/forecast [post]
func (h *ReportHandler) CreateForecast(c *gin.Context) {
	var req ForecastRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	from, to, err := parseWindow(req.DateFrom, req.DateTo)
	if err != nil {
		respondWithError(c, err)
		return
	}

	opening := decimal.Zero
	if req.OpeningBalance != nil {
		opening = *req.OpeningBalance
	}

	view, err := h.reportService.CreateForecast(c.Request.Context(), services.ForecastParams{
		Name:                 req.Name,
		DateFrom:             from,
		DateTo:               to,
		OpeningBalance:       opening,
		CategoryID:           req.CategoryID,
		IncludeSubcategories: req.IncludeSubcategories,
		IncludePlanned:       req.IncludePlanned,
		GroupBy:              req.GroupBy,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "CREATE_FORECAST_REPORT", "forecast_report", view.Report.ID, c.ClientIP(),
		map[string]interface{}{"opening_balance": opening.String()})

	c.JSON(http.StatusCreated, view)
}

// LoadForecast rebuilds the lines of a stored forecast report.
// @Summary     Reload forecast report
// @Tags        reports
// @Produce     json
// @Param       id path string true "Report ID"
// @Success     200 {object} services.ForecastView "Reloaded forecast"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/forecast/{id}/load [post]
func (h *ReportHandler) LoadForecast(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.reportService.LoadForecast(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetForecast returns a stored forecast report with period summaries.
// @Summary     Get forecast report
// @Tags        reports
// @Produce     json
// @Param       id path string true "Report ID"
// @Success     200 {object} services.ForecastView "Forecast"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/forecast/{id} [get]
func (h *ReportHandler) GetForecast(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.reportService.GetForecast(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CreateBudgetAnalysis builds and stores a new budget analysis report.
// @Summary     Create budget analysis report
// @Description Compare budgets against usage and classify each by variance
// @Tags        reports
// @Accept      json
// @Produce     json
// @Param       request body BudgetAnalysisRequest true "Budget analysis filters"
// @Success     201 {object} models.BudgetReport "Loaded budget analysis"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /reports/budget-analysis [post]
func (h *ReportHandler) CreateBudgetAnalysis(c *gin.Context) {
	var req BudgetAnalysisRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	from, to, err := parseWindow(req.DateFrom, req.DateTo)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.CreateBudgetAnalysis(c.Request.Context(), services.BudgetAnalysisParams{
		Name:                 req.Name,
		DateFrom:             from,
		DateTo:               to,
		CategoryID:           req.CategoryID,
		IncludeSubcategories: req.IncludeSubcategories,
		StateFilter:          req.StateFilter,
		VarianceFilter:       req.VarianceFilter,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "CREATE_BUDGET_REPORT", "budget_report", report.ID, c.ClientIP(), nil)

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// LoadBudgetAnalysis recomputes the budgets in scope and rebuilds the lines.
// @Summary     Reload budget analysis report
// @Tags        reports
// @Produce     json
// @Param       id path string true "Report ID"
// @Success     200 {object} models.BudgetReport "Reloaded budget analysis"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/budget-analysis/{id}/load [post]
func (h *ReportHandler) LoadBudgetAnalysis(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.LoadBudgetAnalysis(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GetBudgetAnalysis returns a stored budget analysis report.
// @Summary     Get budget analysis report
// @Tags        reports
// @Produce     json
// @Param       id path string true "Report ID"
// @Success     200 {object} models.BudgetReport "Budget analysis"
// @Failure     404 {object} ErrorResponse "Report not found"
// @Router      /reports/budget-analysis/{id} [get]
func (h *ReportHandler) GetBudgetAnalysis(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetBudgetAnalysis(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
