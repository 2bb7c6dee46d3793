package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/filters"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
	"cashplan/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// CreateBudgetRequest represents the request payload for creating a budget.
type CreateBudgetRequest struct {
	Name          string           `json:"name" binding:"required,min=1,max=100"`
	CategoryID    string           `json:"category_id" binding:"required,uuid"`
	PeriodStart   string           `json:"period_start" binding:"required"`
	PeriodEnd     string           `json:"period_end" binding:"required"`
	PlannedAmount *decimal.Decimal `json:"planned_amount" binding:"required" swaggertype:"string" example:"10000.00"`
	Currency      string           `json:"currency" binding:"omitempty,iso4217"`
	Notes         string           `json:"notes"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	Name          *string          `json:"name" binding:"omitempty,min=1,max=100"`
	CategoryID    *string          `json:"category_id" binding:"omitempty,uuid"`
	PeriodStart   *string          `json:"period_start"`
	PeriodEnd     *string          `json:"period_end"`
	PlannedAmount *decimal.Decimal `json:"planned_amount" swaggertype:"string"`
	Currency      *string          `json:"currency" binding:"omitempty,iso4217"`
	Notes         *string          `json:"notes"`
}

// RecomputeBudgetsRequest names budgets to recompute; empty means all.
type RecomputeBudgetsRequest struct {
	BudgetIDs []string `json:"budget_ids" binding:"omitempty,dive,uuid"`
}

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Create a draft budget for a category over a closed date window
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	periodStart, err := parseDate("period_start", req.PeriodStart)
	if err != nil {
		respondWithError(c, err)
		return
	}
	periodEnd, err := parseDate("period_end", req.PeriodEnd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.CreateBudget(services.BudgetInput{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		PlannedAmount: *req.PlannedAmount,
		Currency:      req.Currency,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "CREATE_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"name": budget.Name, "planned_amount": budget.PlannedAmount.String()})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetBudgets handles listing budgets.
// @Summary     Get budgets
// @Description Get a paginated list of budgets
// @Tags        budgets
// @Produce     json
// @Param       state       query string false "draft, confirmed or closed"
// @Param       category_id query string false "Category ID"
// @Param       date_from   query string false "Keep budgets ending on or after this date"
// @Param       date_to     query string false "Keep budgets starting on or before this date"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets [get]
func (h *BudgetHandler) GetBudgets(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter filters.Budgets
	if v := c.Query("state"); v != "" {
		s := models.BudgetState(v)
		switch s {
		case models.BudgetDraft, models.BudgetConfirmed, models.BudgetClosed:
			filter.States = []models.BudgetState{s}
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "state must be 'draft', 'confirmed' or 'closed'"))
			return
		}
	}
	if v := c.Query("category_id"); v != "" {
		filter.CategoryIDs = []string{v}
	}
	var err error
	if filter.OverlapFrom, err = parseQueryDate(c, "date_from"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.OverlapTo, err = parseQueryDate(c, "date_to"); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.budgetService.ListBudgets(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBudget handles retrieving a single budget.
// @Summary     Get budget by ID
// @Tags        budgets
// @Produce     json
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Budget details"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// UpdateBudget handles updating a budget.
// @Summary     Update budget
// @Description Update a budget; used and remaining amounts are recomputed
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Param       id      path string              true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Fields to update"
// @Success     200 {object} models.Budget "Updated budget"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	periodStart, err := parseOptionalDate("period_start", req.PeriodStart)
	if err != nil {
		respondWithError(c, err)
		return
	}
	periodEnd, err := parseOptionalDate("period_end", req.PeriodEnd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.UpdateBudget(id, services.BudgetUpdate{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		PlannedAmount: req.PlannedAmount,
		Currency:      req.Currency,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "UPDATE_BUDGET", "budget", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// GetBudgetProgress handles retrieving consumption for a budget.
// @Summary     Get budget progress
// @Description Get used and remaining amounts, usage percent and status
// @Tags        budgets
// @Produce     json
// @Param       id path string true "Budget ID"
// @Success     200 {object} services.BudgetProgress "Budget progress"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/progress [get]
func (h *BudgetHandler) GetBudgetProgress(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.budgetService.GetBudgetProgress(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// ConfirmBudget moves a draft budget to confirmed.
// @Summary     Confirm budget
// @Tags        budgets
// @Produce     json
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Confirmed budget"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /budgets/{id}/confirm [post]
func (h *BudgetHandler) ConfirmBudget(c *gin.Context) {
	h.transition(c, "CONFIRM_BUDGET", h.budgetService.ConfirmBudget)
}

// CloseBudget closes a confirmed budget.
// @Summary     Close budget
// @Tags        budgets
// @Produce     json
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Closed budget"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /budgets/{id}/close [post]
func (h *BudgetHandler) CloseBudget(c *gin.Context) {
	h.transition(c, "CLOSE_BUDGET", h.budgetService.CloseBudget)
}

// ReopenBudget moves a closed budget back to confirmed.
// @Summary     Reopen budget
// @Tags        budgets
// @Produce     json
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Reopened budget"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /budgets/{id}/reopen [post]
func (h *BudgetHandler) ReopenBudget(c *gin.Context) {
	h.transition(c, "REOPEN_BUDGET", h.budgetService.ReopenBudget)
}

// SetBudgetToDraft moves a budget back to draft.
// @Summary     Set budget to draft
// @Tags        budgets
// @Produce     json
// @Param       id path string true "Budget ID"
// @Success     200 {object} models.Budget "Draft budget"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /budgets/{id}/draft [post]
func (h *BudgetHandler) SetBudgetToDraft(c *gin.Context) {
	h.transition(c, "DRAFT_BUDGET", h.budgetService.SetBudgetToDraft)
}

func (h *BudgetHandler) transition(c *gin.Context, action string, fn func(string) (*models.Budget, error)) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := fn(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), action, "budget", id, c.ClientIP(),
		map[string]interface{}{"state": budget.State})

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// RecomputeBudgets handles an explicit usage recomputation.
// @Summary     Recompute budgets
// @Description Recompute used and remaining amounts for the given budgets, or all budgets
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Param       request body RecomputeBudgetsRequest false "Budget IDs"
// @Success     200 {array} models.Budget "Recomputed budgets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/recompute [post]
func (h *BudgetHandler) RecomputeBudgets(c *gin.Context) {
	var req RecomputeBudgetsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	budgets, err := h.budgetService.RecomputeBudgets(req.BudgetIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "RECOMPUTE_BUDGETS", "budget", "", c.ClientIP(),
		map[string]interface{}{"count": len(budgets)})

	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

// DeleteBudget handles deleting a budget.
// @Summary     Delete budget
// @Description Delete a budget; planned items linked to it keep their data but lose the link
// @Tags        budgets
// @Produce     json
// @Param       id path string true "Budget ID"
// @Success     200 {object} MessageResponse "Budget deleted"
// @Failure     400 {object} ErrorResponse "Invalid budget ID"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgetService.DeleteBudget(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "DELETE_BUDGET", "budget", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Budget deleted successfully"})
}
