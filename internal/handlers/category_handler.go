package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
	"cashplan/internal/services"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
	auditService    services.AuditServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer, auditService services.AuditServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, auditService: auditService}
}

// CreateCategoryRequest represents the request payload for creating a category.
// A child category may omit type and inherits it from the parent.
type CreateCategoryRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=100"`
	Code        string          `json:"code" binding:"required,category_code"`
	Type        models.FlowType `json:"type" binding:"omitempty,flow_type"`
	ParentID    *string         `json:"parent_id" binding:"omitempty,uuid"`
	Sequence    int             `json:"sequence" binding:"omitempty,min=0"`
	Description string          `json:"description" binding:"omitempty,max=500"`
}

// UpdateCategoryRequest represents the request payload for updating a category
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Sequence    *int    `json:"sequence" binding:"omitempty,min=0"`
	Active      *bool   `json:"active"`
}

// MoveCategoryRequest moves a category under a new parent; a null parent
// makes it a root.
type MoveCategoryRequest struct {
	ParentID *string `json:"parent_id" binding:"omitempty,uuid"`
}

// ChangeCategoryTypeRequest changes the flow type of a root category.
type ChangeCategoryTypeRequest struct {
	Type models.FlowType `json:"type" binding:"required,flow_type"`
}

// CreateCategory handles the creation of a new category
// @Summary     Create a category
// @Description Create a new income or payment category, optionally under a parent
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} models.Category "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Parent category not found"
// @Failure     409 {object} ErrorResponse "Duplicate code"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.CreateCategory(req.Name, req.Code, req.Type, req.ParentID, req.Sequence, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "CREATE_CATEGORY", "category", category.ID, c.ClientIP(),
		map[string]interface{}{"name": category.Name, "code": category.Code, "type": category.Type})

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// GetCategories handles listing categories
// @Summary     Get categories
// @Description Get a paginated list of categories ordered by sequence and name
// @Tags        categories
// @Produce     json
// @Param       type      query string false "Filter by type (income/payment)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Category] "Paginated categories"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories [get]
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var categoryType *models.FlowType
	if v := c.Query("type"); v != "" {
		t := models.FlowType(v)
		if t != models.FlowIncome && t != models.FlowPayment {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be 'income' or 'payment'"))
			return
		}
		categoryType = &t
	}

	result, err := h.categoryService.ListCategories(categoryType, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCategoryByID handles the retrieval of a specific category
// @Summary     Get category by ID
// @Tags        categories
// @Produce     json
// @Param       id path string true "Category ID"
// @Success     200 {object} models.Category "Category details"
// @Failure     400 {object} ErrorResponse "Invalid category ID"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategoryByID(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// UpdateCategory handles renaming and describing a category
// @Summary     Update category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       id      path string                true "Category ID"
// @Param       request body UpdateCategoryRequest true "Updated category details"
// @Success     200 {object} models.Category "Updated category"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.UpdateCategory(id, req.Name, req.Description, req.Sequence, req.Active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "UPDATE_CATEGORY", "category", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// MoveCategory handles re-parenting a category
// @Summary     Move category
// @Description Move a category under a new parent, or to the root with a null parent_id
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       id      path string              true "Category ID"
// @Param       request body MoveCategoryRequest true "New parent"
// @Success     200 {object} models.Category "Moved category"
// @Failure     400 {object} ErrorResponse "Invalid input or cycle"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Type conflict"
// @Router      /categories/{id}/parent [put]
func (h *CategoryHandler) MoveCategory(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MoveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.MoveCategory(id, req.ParentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "MOVE_CATEGORY", "category", id, c.ClientIP(),
		map[string]interface{}{"parent_id": req.ParentID})

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// ChangeCategoryType handles switching a root category between income and payment
// @Summary     Change category type
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       id      path string                    true "Category ID"
// @Param       request body ChangeCategoryTypeRequest true "New type"
// @Success     200 {object} models.Category "Updated category"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Type conflict"
// @Router      /categories/{id}/type [put]
func (h *CategoryHandler) ChangeCategoryType(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ChangeCategoryTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.ChangeCategoryType(id, req.Type)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "CHANGE_CATEGORY_TYPE", "category", id, c.ClientIP(),
		map[string]interface{}{"type": req.Type})

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// GetCategoryPath returns the names from the root down to the category
// @Summary     Get category path
// @Tags        categories
// @Produce     json
// @Param       id path string true "Category ID"
// @Success     200 {object} services.CategoryPath "Full path"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/path [get]
func (h *CategoryHandler) GetCategoryPath(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	path, err := h.categoryService.GetCategoryPath(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, path)
}

// GetDescendants lists every category below the given one, breadth first
// @Summary     Get category descendants
// @Tags        categories
// @Produce     json
// @Param       id path string true "Category ID"
// @Success     200 {array} models.Category "Descendants"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/descendants [get]
func (h *CategoryHandler) GetDescendants(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	categories, err := h.categoryService.GetDescendants(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetAncestors lists the parent chain, nearest first
// @Summary     Get category ancestors
// @Tags        categories
// @Produce     json
// @Param       id path string true "Category ID"
// @Success     200 {array} models.Category "Ancestors"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/ancestors [get]
func (h *CategoryHandler) GetAncestors(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	categories, err := h.categoryService.GetAncestors(id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// DeleteCategory handles deleting a category
// @Summary     Delete category
// @Description Delete an unreferenced category without children
// @Tags        categories
// @Produce     json
// @Param       id path string true "Category ID"
// @Success     200 {object} MessageResponse "Category deleted"
// @Failure     400 {object} ErrorResponse "Invalid category ID"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Category in use or has children"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categoryService.DeleteCategory(id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorFrom(c), "DELETE_CATEGORY", "category", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted successfully"})
}
