package services

import (
	"encoding/json"

	"gorm.io/gorm"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/logger"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
)

// DefaultActor is recorded when a caller does not identify itself.
const DefaultActor = "api"

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records who changed which planning record. Write failures are logged
// and dropped.
func (s *auditService) Log(actor, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	if actor == "" {
		actor = DefaultActor
	}

	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"actor", actor,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

// ListAuditLogs returns a page of audit entries, newest first.
func (s *auditService) ListAuditLogs(filter AuditLogFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	q := s.db.Model(&models.AuditLog{})
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		q = q.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}

	result, err := pagination.Find[models.AuditLog](q, page, "created_at DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}
