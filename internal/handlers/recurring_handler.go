package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/filters"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
	"cashplan/internal/services"
)

// RecurringHandler handles recurring item and scheduler requests.
type RecurringHandler struct {
	recurringService services.RecurringItemServicer
	auditService     services.AuditServicer
	now              func() time.Time
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringItemServicer, auditService services.AuditServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService, auditService: auditService, now: time.Now}
}

// CreateRecurringItemRequest represents the request payload for creating a recurring item.
type CreateRecurringItemRequest struct {
	Description    string                `json:"description" binding:"required,min=1,max=255"`
	Type           models.FlowType       `json:"type" binding:"omitempty,flow_type"`
	CategoryID     string                `json:"category_id" binding:"required,uuid"`
	Amount         *decimal.Decimal      `json:"amount" binding:"required" swaggertype:"string" example:"1200.00"`
	Currency       string                `json:"currency" binding:"omitempty,iso4217"`
	PartnerID      *string               `json:"partner_id" binding:"omitempty,max=64"`
	RecurrenceUnit models.RecurrenceUnit `json:"recurrence_unit" binding:"required,recurrence_unit"`
	Interval       int                   `json:"interval" binding:"omitempty,min=1"`
	StartDate      string                `json:"start_date" binding:"required"`
	EndDate        *string               `json:"end_date"`
	AutoGenerate   *bool                 `json:"auto_generate"`
	DaysInAdvance  int                   `json:"days_in_advance" binding:"omitempty,min=0,max=366"`
	Notes          string                `json:"notes"`
}

// UpdateRecurringItemRequest represents the request payload for updating a recurring item.
// Set clear_end_date to remove an existing end date.
type UpdateRecurringItemRequest struct {
	Description    *string                `json:"description" binding:"omitempty,min=1,max=255"`
	CategoryID     *string                `json:"category_id" binding:"omitempty,uuid"`
	Amount         *decimal.Decimal       `json:"amount" swaggertype:"string"`
	Currency       *string                `json:"currency" binding:"omitempty,iso4217"`
	PartnerID      *string                `json:"partner_id" binding:"omitempty,max=64"`
	RecurrenceUnit *models.RecurrenceUnit `json:"recurrence_unit" binding:"omitempty,recurrence_unit"`
	Interval       *int                   `json:"interval" binding:"omitempty,min=1"`
	StartDate      *string                `json:"start_date"`
	EndDate        *string                `json:"end_date"`
	ClearEndDate   bool                   `json:"clear_end_date"`
	AutoGenerate   *bool                  `json:"auto_generate"`
	DaysInAdvance  *int                   `json:"days_in_advance" binding:"omitempty,min=0,max=366"`
	Notes          *string                `json:"notes"`
}

// SweepRequest optionally pins the sweep reference time (RFC 3339).
type SweepRequest struct {
	ReferenceTime *time.Time `json:"reference_time"`
}

// NextDateResponse is the next occurrence of a recurring item.
type NextDateResponse struct {
	RecurringItemID string     `json:"recurring_item_id"`
	ReferenceDate   string     `json:"reference_date"`
	NextDate        *time.Time `json:"next_date"`
}

// CreateRecurringItem handles the creation of a new recurring item.
// @Summary     Create a recurring item
// @Tags        recurring-items
// @Accept      json
// @Produce     json
// @Param       request body CreateRecurringItemRequest true "Recurring item details"
// @Success     201 {object} models.RecurringItem "Recurring item created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring-items [post]
func (h *RecurringHandler) CreateRecurringItem(c *gin.Context) {
	var req CreateRecurringItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	startDate, err := parseDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	endDate, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	interval := req.Interval
	if interval == 0 {
		interval = 1
	}
	autoGenerate := true
	if req.AutoGenerate != nil {
		autoGenerate = *req.AutoGenerate
	}

	item, err := h.recurringService.CreateRecurringItem(services.RecurringItemInput{
		Description:    req.Description,
		Type:           req.Type,
		CategoryID:     req.CategoryID,
		Amount:         *req.Amount,
		Currency:       req.Currency,
		PartnerID:      req.PartnerID,
		RecurrenceUnit: req.RecurrenceUnit,
		Interval:       interval,
		StartDate:      startDate,
		EndDate:        endDate,
		AutoGenerate:   autoGenerate,
		DaysInAdvance:  req.DaysInAdvance,
		Notes:          req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "CREATE_RECURRING_ITEM", "recurring_item", item.ID, c.ClientIP(),
		map[string]interface{}{"recurrence_unit": item.RecurrenceUnit, "interval": item.Interval, "amount": item.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"recurring_item": item})
}

// GetRecurringItems handles listing recurring items.
// @Summary     Get recurring items
// @Tags        recurring-items
// @Produce     json
// @Param       state         query string false "active, suspended or expired"
// @Param       auto_generate query bool   false "Filter by auto generation"
// @Param       category_id   query string false "Category ID"
// @Param       page          query int    false "Page number (default 1)"
// @Param       page_size     query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.RecurringItem] "Paginated recurring items"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /recurring-items [get]
func (h *RecurringHandler) GetRecurringItems(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter filters.RecurringItems
	if v := c.Query("state"); v != "" {
		s := models.RecurringState(v)
		switch s {
		case models.RecurringActive, models.RecurringSuspended, models.RecurringExpired:
			filter.States = []models.RecurringState{s}
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "state must be 'active', 'suspended' or 'expired'"))
			return
		}
	}
	autoGenerate, err := parseQueryBool(c, "auto_generate")
	if err != nil {
		respondWithError(c, err)
		return
	}
	filter.AutoGenerate = autoGenerate
	if v := c.Query("category_id"); v != "" {
		filter.CategoryIDs = []string{v}
	}

	result, err := h.recurringService.ListRecurringItems(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecurringItem handles retrieving a single recurring item.
// @Summary     Get recurring item by ID
// @Tags        recurring-items
// @Produce     json
// @Param       id path string true "Recurring item ID"
// @Success     200 {object} models.RecurringItem "Recurring item with its next date"
// @Failure     404 {object} ErrorResponse "Recurring item not found"
// @Router      /recurring-items/{id} [get]
func (h *RecurringHandler) GetRecurringItem(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	item, err := h.recurringService.GetRecurringItemByID(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_item": item})
}

// UpdateRecurringItem handles updating a recurring item.
// @Summary     Update recurring item
// @Tags        recurring-items
// @Accept      json
// @Produce     json
// @Param       id      path string                     true "Recurring item ID"
// @Param       request body UpdateRecurringItemRequest true "Fields to update"
// @Success     200 {object} models.RecurringItem "Updated recurring item"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Recurring item not found"
// @Router      /recurring-items/{id} [put]
func (h *RecurringHandler) UpdateRecurringItem(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	startDate, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	endDate, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	item, err := h.recurringService.UpdateRecurringItem(id, services.RecurringItemUpdate{
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PartnerID:      req.PartnerID,
		RecurrenceUnit: req.RecurrenceUnit,
		Interval:       req.Interval,
		StartDate:      startDate,
		EndDate:        endDate,
		ClearEndDate:   req.ClearEndDate,
		AutoGenerate:   req.AutoGenerate,
		DaysInAdvance:  req.DaysInAdvance,
		Notes:          req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "UPDATE_RECURRING_ITEM", "recurring_item", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"recurring_item": item})
}

// GetNextDate returns the first occurrence after a reference date.
// @Summary     Get next occurrence
// @Tags        recurring-items
// @Produce     json
// @Param       id    path  string true  "Recurring item ID"
// @Param       after query string false "Reference date (YYYY-MM-DD, default today)"
// @Success     200 {object} NextDateResponse "Next date, null when the schedule is finished or suspended"
// @Failure     404 {object} ErrorResponse "Recurring item not found"
// @Router      /recurring-items/{id}/next-date [get]
func (h *RecurringHandler) GetNextDate(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	ref := models.Day(h.now())
	after, err := parseQueryDate(c, "after")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if after != nil {
		ref = *after
	}

	next, err := h.recurringService.GetNextDate(id, ref)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, NextDateResponse{
		RecurringItemID: id,
		ReferenceDate:   ref.Format(dateLayout),
		NextDate:        next,
	})
}

// GenerateNow handles materializing the next occurrence immediately.
// @Summary     Generate next planned item
// @Description Create the planned item for the next occurrence, regardless of the lookahead window
// @Tags        recurring-items
// @Produce     json
// @Param       id path string true "Recurring item ID"
// @Success     201 {object} models.PlannedItem "Generated planned item"
// @Failure     404 {object} ErrorResponse "Recurring item not found"
// @Failure     409 {object} ErrorResponse "Recurring item not active or exhausted"
// @Router      /recurring-items/{id}/generate [post]
func (h *RecurringHandler) GenerateNow(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	item, err := h.recurringService.GenerateNow(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "GENERATE_PLANNED_ITEM", "recurring_item", id, c.ClientIP(),
		map[string]interface{}{"planned_item_id": item.ID, "planned_date": item.PlannedDate.Format(dateLayout)})

	c.JSON(http.StatusCreated, gin.H{"planned_item": item})
}

// SuspendRecurringItem pauses a schedule.
// @Summary     Suspend recurring item
// @Tags        recurring-items
// @Produce     json
// @Param       id path string true "Recurring item ID"
// @Success     200 {object} models.RecurringItem "Suspended recurring item"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /recurring-items/{id}/suspend [post]
func (h *RecurringHandler) SuspendRecurringItem(c *gin.Context) {
	h.transition(c, "SUSPEND_RECURRING_ITEM", h.recurringService.SuspendRecurringItem)
}

// ActivateRecurringItem resumes a suspended schedule.
// @Summary     Activate recurring item
// @Tags        recurring-items
// @Produce     json
// @Param       id path string true "Recurring item ID"
// @Success     200 {object} models.RecurringItem "Active recurring item"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /recurring-items/{id}/activate [post]
func (h *RecurringHandler) ActivateRecurringItem(c *gin.Context) {
	h.transition(c, "ACTIVATE_RECURRING_ITEM", h.recurringService.ActivateRecurringItem)
}

// ExpireRecurringItem ends a schedule permanently.
// @Summary     Expire recurring item
// @Tags        recurring-items
// @Produce     json
// @Param       id path string true "Recurring item ID"
// @Success     200 {object} models.RecurringItem "Expired recurring item"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /recurring-items/{id}/expire [post]
func (h *RecurringHandler) ExpireRecurringItem(c *gin.Context) {
	h.transition(c, "EXPIRE_RECURRING_ITEM", h.recurringService.ExpireRecurringItem)
}

func (h *RecurringHandler) transition(c *gin.Context, action string, fn func(string) (*models.RecurringItem, error)) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	item, err := fn(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), action, "recurring_item", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"recurring_item": item})
}

// DeleteRecurringItem handles deleting a recurring item. Planned items it
// generated are kept.
// @Summary     Delete recurring item
// @Tags        recurring-items
// @Produce     json
// @Param       id path string true "Recurring item ID"
// @Success     200 {object} MessageResponse "Recurring item deleted"
// @Failure     404 {object} ErrorResponse "Recurring item not found"
// @Router      /recurring-items/{id} [delete]
func (h *RecurringHandler) DeleteRecurringItem(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringService.DeleteRecurringItem(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "DELETE_RECURRING_ITEM", "recurring_item", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Recurring item deleted successfully"})
}

// Sweep runs one scheduler pass over all auto-generating recurring items.
// @Summary     Run recurrence sweep
// @Description Materialize every due occurrence. Called by an external scheduler.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    PipelineAPIKey
// @Param       request body SweepRequest false "Reference time, default now"
// @Success     200 {object} services.SweepResult "Sweep summary"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/sweep [post]
func (h *RecurringHandler) Sweep(c *gin.Context) {
	var req SweepRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	ref := h.now()
	if req.ReferenceTime != nil {
		ref = *req.ReferenceTime
	}

	result, err := h.recurringService.Sweep(c.Request.Context(), ref)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "RECURRENCE_SWEEP", "recurring_item", "", c.ClientIP(),
		map[string]interface{}{"generated": result.Generated, "failed": result.Failed, "expired": result.Expired})

	c.JSON(http.StatusOK, result)
}
