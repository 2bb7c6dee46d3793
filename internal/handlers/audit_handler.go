package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/pagination"
	"cashplan/internal/services"
)

// AuditHandler exposes the audit trail of mutating calls.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// GetAuditLogs handles listing audit entries.
// @Summary     Get audit logs
// @Description Get a paginated list of audit entries, newest first
// @Tags        audit
// @Produce     json
// @Param       actor         query string false "Actor recorded from X-Actor"
// @Param       action        query string false "Action such as CREATE_BUDGET"
// @Param       resource_type query string false "Resource type such as budget"
// @Param       resource_id   query string false "Resource ID"
// @Param       page          query int    false "Page number (default 1)"
// @Param       page_size     query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.AuditLog] "Paginated audit entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.AuditLogFilter{
		Actor:        c.Query("actor"),
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
	}

	result, err := h.auditService.ListAuditLogs(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
