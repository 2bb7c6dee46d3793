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

// PlannedItemHandler handles planned item requests.
type PlannedItemHandler struct {
	plannedItemService services.PlannedItemServicer
	auditService       services.AuditServicer
}

// NewPlannedItemHandler creates a new PlannedItemHandler.
func NewPlannedItemHandler(plannedItemService services.PlannedItemServicer, auditService services.AuditServicer) *PlannedItemHandler {
	return &PlannedItemHandler{plannedItemService: plannedItemService, auditService: auditService}
}

// CreatePlannedItemRequest represents the request payload for creating a planned item.
// Amount may be signed; type defaults to the category's type.
type CreatePlannedItemRequest struct {
	Description string           `json:"description" binding:"required,min=1,max=255"`
	Type        models.FlowType  `json:"type" binding:"omitempty,flow_type"`
	PlannedDate string           `json:"planned_date" binding:"required"`
	CategoryID  string           `json:"category_id" binding:"required,uuid"`
	Amount      *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"2500.00"`
	Currency    string           `json:"currency" binding:"omitempty,iso4217"`
	Priority    models.Priority  `json:"priority" binding:"omitempty,priority"`
	PartnerID   *string          `json:"partner_id" binding:"omitempty,max=64"`
	BudgetID    *string          `json:"budget_id" binding:"omitempty,uuid"`
	InvoiceRef  string           `json:"invoice_ref" binding:"omitempty,max=64"`
	Notes       string           `json:"notes"`
}

// UpdatePlannedItemRequest represents the request payload for updating a planned item.
type UpdatePlannedItemRequest struct {
	Description *string          `json:"description" binding:"omitempty,min=1,max=255"`
	PlannedDate *string          `json:"planned_date"`
	CategoryID  *string          `json:"category_id" binding:"omitempty,uuid"`
	Amount      *decimal.Decimal `json:"amount" swaggertype:"string"`
	Currency    *string          `json:"currency" binding:"omitempty,iso4217"`
	Priority    *models.Priority `json:"priority" binding:"omitempty,priority"`
	PartnerID   *string          `json:"partner_id" binding:"omitempty,max=64"`
	BudgetID    *string          `json:"budget_id" binding:"omitempty,uuid"`
	InvoiceRef  *string          `json:"invoice_ref" binding:"omitempty,max=64"`
	Notes       *string          `json:"notes"`
}

// MarkPaidRequest optionally carries the actual payment date; today is used otherwise.
type MarkPaidRequest struct {
	ActualDate *string `json:"actual_date"`
}

// CreatePlannedItem handles the creation of a new planned item.
// @Summary     Create a planned item
// @Description Plan an income or payment on a date
// @Tags        planned-items
// @Accept      json
// @Produce     json
// @Param       request body CreatePlannedItemRequest true "Planned item details"
// @Success     201 {object} models.PlannedItem "Planned item created"
// @Failure     400 {object} ErrorResponse "Invalid input or type mismatch"
// @Failure     404 {object} ErrorResponse "Category or budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /planned-items [post]
func (h *PlannedItemHandler) CreatePlannedItem(c *gin.Context) {
	var req CreatePlannedItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	plannedDate, err := parseDate("planned_date", req.PlannedDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	item, err := h.plannedItemService.CreatePlannedItem(services.PlannedItemInput{
		Description: req.Description,
		Type:        req.Type,
		PlannedDate: plannedDate,
		CategoryID:  req.CategoryID,
		Amount:      *req.Amount,
		Currency:    req.Currency,
		Priority:    req.Priority,
		PartnerID:   req.PartnerID,
		BudgetID:    req.BudgetID,
		InvoiceRef:  req.InvoiceRef,
		Notes:       req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "CREATE_PLANNED_ITEM", "planned_item", item.ID, c.ClientIP(),
		map[string]interface{}{"amount": item.Amount.String(), "type": item.Type, "planned_date": req.PlannedDate})

	c.JSON(http.StatusCreated, gin.H{"planned_item": item})
}

// GetPlannedItems handles listing planned items.
// @Summary     Get planned items
// @Description Get a paginated list of planned items ordered by date
// @Tags        planned-items
// @Produce     json
// @Param       date_from         query string false "Earliest planned date (YYYY-MM-DD)"
// @Param       date_to           query string false "Latest planned date (YYYY-MM-DD)"
// @Param       type              query string false "income or payment"
// @Param       state             query string false "planned, paid or cancelled"
// @Param       category_id       query string false "Category ID"
// @Param       partner_id        query string false "Partner ID"
// @Param       budget_id         query string false "Budget ID"
// @Param       recurring_item_id query string false "Source recurring item ID"
// @Param       page              query int    false "Page number (default 1)"
// @Param       page_size         query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.PlannedItem] "Paginated planned items"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /planned-items [get]
func (h *PlannedItemHandler) GetPlannedItems(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter filters.PlannedItems
	var err error
	if filter.DateFrom, err = parseQueryDate(c, "date_from"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.DateTo, err = parseQueryDate(c, "date_to"); err != nil {
		respondWithError(c, err)
		return
	}

	if v := c.Query("type"); v != "" {
		t := models.FlowType(v)
		if t != models.FlowIncome && t != models.FlowPayment {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be 'income' or 'payment'"))
			return
		}
		filter.Types = []models.FlowType{t}
	}
	if v := c.Query("state"); v != "" {
		s := models.PlannedItemState(v)
		switch s {
		case models.PlannedItemPlanned, models.PlannedItemPaid, models.PlannedItemCancelled:
			filter.States = []models.PlannedItemState{s}
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "state must be 'planned', 'paid' or 'cancelled'"))
			return
		}
	}
	if v := c.Query("category_id"); v != "" {
		filter.CategoryIDs = []string{v}
	}
	if v := c.Query("partner_id"); v != "" {
		filter.PartnerIDs = []string{v}
	}
	if v := c.Query("budget_id"); v != "" {
		filter.BudgetID = &v
	}
	if v := c.Query("recurring_item_id"); v != "" {
		filter.RecurringItemID = &v
	}

	result, err := h.plannedItemService.ListPlannedItems(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPlannedItem handles retrieving a single planned item.
// @Summary     Get planned item by ID
// @Tags        planned-items
// @Produce     json
// @Param       id path string true "Planned item ID"
// @Success     200 {object} models.PlannedItem "Planned item details"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Planned item not found"
// @Router      /planned-items/{id} [get]
func (h *PlannedItemHandler) GetPlannedItem(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	item, err := h.plannedItemService.GetPlannedItemByID(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"planned_item": item})
}

// UpdatePlannedItem handles updating a planned item.
// @Summary     Update planned item
// @Description Update a planned or paid item; budgets covering the old and new date are recomputed
// @Tags        planned-items
// @Accept      json
// @Produce     json
// @Param       id      path string                   true "Planned item ID"
// @Param       request body UpdatePlannedItemRequest true "Fields to update"
// @Success     200 {object} models.PlannedItem "Updated planned item"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Planned item not found"
// @Failure     409 {object} ErrorResponse "Item is cancelled"
// @Router      /planned-items/{id} [put]
func (h *PlannedItemHandler) UpdatePlannedItem(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePlannedItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	plannedDate, err := parseOptionalDate("planned_date", req.PlannedDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	item, err := h.plannedItemService.UpdatePlannedItem(id, services.PlannedItemUpdate{
		Description: req.Description,
		PlannedDate: plannedDate,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Priority:    req.Priority,
		PartnerID:   req.PartnerID,
		BudgetID:    req.BudgetID,
		InvoiceRef:  req.InvoiceRef,
		Notes:       req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "UPDATE_PLANNED_ITEM", "planned_item", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"planned_item": item})
}

// MarkPaid handles marking a planned item as paid.
// @Summary     Mark planned item paid
// @Tags        planned-items
// @Accept      json
// @Produce     json
// @Param       id      path string          true  "Planned item ID"
// @Param       request body MarkPaidRequest false "Actual payment date"
// @Success     200 {object} models.PlannedItem "Paid planned item"
// @Failure     404 {object} ErrorResponse "Planned item not found"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /planned-items/{id}/pay [post]
func (h *PlannedItemHandler) MarkPaid(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MarkPaidRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	actualDate, err := parseOptionalDate("actual_date", req.ActualDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	item, err := h.plannedItemService.MarkPaid(id, actualDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "PAY_PLANNED_ITEM", "planned_item", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"planned_item": item})
}

// CancelPlannedItem handles cancelling a planned item.
// @Summary     Cancel planned item
// @Tags        planned-items
// @Produce     json
// @Param       id path string true "Planned item ID"
// @Success     200 {object} models.PlannedItem "Cancelled planned item"
// @Failure     404 {object} ErrorResponse "Planned item not found"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /planned-items/{id}/cancel [post]
func (h *PlannedItemHandler) CancelPlannedItem(c *gin.Context) {
	h.transition(c, "CANCEL_PLANNED_ITEM", h.plannedItemService.CancelPlannedItem)
}

// ResetPlannedItem handles returning a planned item to the planned state.
// @Summary     Reset planned item
// @Tags        planned-items
// @Produce     json
// @Param       id path string true "Planned item ID"
// @Success     200 {object} models.PlannedItem "Planned item"
// @Failure     404 {object} ErrorResponse "Planned item not found"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /planned-items/{id}/reset [post]
func (h *PlannedItemHandler) ResetPlannedItem(c *gin.Context) {
	h.transition(c, "RESET_PLANNED_ITEM", h.plannedItemService.ResetToPlanned)
}

func (h *PlannedItemHandler) transition(c *gin.Context, action string, fn func(string) (*models.PlannedItem, error)) {
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

	h.auditService.Log(actorFrom(c), action, "planned_item", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"planned_item": item})
}

// DeletePlannedItem handles deleting a planned item.
// @Summary     Delete planned item
// @Tags        planned-items
// @Produce     json
// @Param       id path string true "Planned item ID"
// @Success     200 {object} MessageResponse "Planned item deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     404 {object} ErrorResponse "Planned item not found"
// @Router      /planned-items/{id} [delete]
func (h *PlannedItemHandler) DeletePlannedItem(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.plannedItemService.DeletePlannedItem(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "DELETE_PLANNED_ITEM", "planned_item", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Planned item deleted successfully"})
}
