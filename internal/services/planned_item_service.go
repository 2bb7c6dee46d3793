package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/filters"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
)

// DefaultCurrency is applied to records created without a currency.
var DefaultCurrency = "USD"

// plannedItemService handles planned item business logic.
type plannedItemService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPlannedItemService creates a new PlannedItemServicer.
func NewPlannedItemService(db *gorm.DB) PlannedItemServicer {
	return &plannedItemService{db: db, now: time.Now}
}

// CreatePlannedItem creates a planned item in state planned and refreshes
// the budgets covering its category and date.
func (s *plannedItemService) CreatePlannedItem(in PlannedItemInput) (*models.PlannedItem, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if in.PlannedDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "planned date is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}
	if in.Type != "" && !in.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or payment")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !validPriority(priority) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "priority must be low, medium or high")
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}

	item := &models.PlannedItem{
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		PlannedDate: models.Day(in.PlannedDate),
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Currency:    currency,
		Priority:    priority,
		PartnerID:   in.PartnerID,
		BudgetID:    in.BudgetID,
		InvoiceRef:  in.InvoiceRef,
		State:       models.PlannedItemPlanned,
		Notes:       in.Notes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		category, err := findCategory(tx, in.CategoryID)
		if err != nil {
			return err
		}
		if item.Type == "" {
			item.Type = category.Type
		}
		if item.Type != category.Type {
			return apperrors.ErrTypeMismatch
		}
		if item.BudgetID != nil {
			if _, err := findBudget(tx, *item.BudgetID); err != nil {
				return err
			}
		}

		if err := tx.Create(item).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		syncItemUsage(tx, "create_planned_item", nil, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetPlannedItemByID retrieves a planned item with its category.
func (s *plannedItemService) GetPlannedItemByID(id string) (*models.PlannedItem, error) {
	var item models.PlannedItem
	if err := s.db.Preload("Category").Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPlannedItemNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &item, nil
}

// ListPlannedItems returns a page of planned items matching filter, ordered
// by planned date.
func (s *plannedItemService) ListPlannedItems(filter filters.PlannedItems, page pagination.PageRequest) (*pagination.PageResponse[models.PlannedItem], error) {
	base := s.db.Model(&models.PlannedItem{}).Scopes(filter.Scope())

	result, err := pagination.Find[models.PlannedItem](base, page,
		"planned_items.planned_date, planned_items.created_at", pagination.Preload("Category"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpdatePlannedItem edits a planned or paid item. Cancelled items are frozen.
func (s *plannedItemService) UpdatePlannedItem(id string, upd PlannedItemUpdate) (*models.PlannedItem, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := findPlannedItem(tx, id)
		if err != nil {
			return err
		}
		if item.State == models.PlannedItemCancelled {
			return apperrors.ErrPlannedItemNotEditable
		}
		before := *item

		if upd.Description != nil {
			d := strings.TrimSpace(*upd.Description)
			if d == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "description cannot be empty")
			}
			item.Description = d
		}
		if upd.PlannedDate != nil {
			item.PlannedDate = models.Day(*upd.PlannedDate)
		}
		if upd.Amount != nil {
			if !upd.Amount.IsPositive() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
			}
			item.Amount = *upd.Amount
		}
		if upd.Currency != nil && *upd.Currency != "" {
			item.Currency = strings.ToUpper(*upd.Currency)
		}
		if upd.Priority != nil {
			if !validPriority(*upd.Priority) {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "priority must be low, medium or high")
			}
			item.Priority = *upd.Priority
		}
		if upd.PartnerID != nil {
			item.PartnerID = emptyToNil(*upd.PartnerID)
		}
		if upd.InvoiceRef != nil {
			item.InvoiceRef = *upd.InvoiceRef
		}
		if upd.Notes != nil {
			item.Notes = *upd.Notes
		}
		if upd.CategoryID != nil && *upd.CategoryID != item.CategoryID {
			category, err := findCategory(tx, *upd.CategoryID)
			if err != nil {
				return err
			}
			if category.Type != item.Type {
				return apperrors.ErrTypeMismatch
			}
			item.CategoryID = category.ID
		}
		if upd.BudgetID != nil {
			item.BudgetID = emptyToNil(*upd.BudgetID)
			if item.BudgetID != nil {
				if _, err := findBudget(tx, *item.BudgetID); err != nil {
					return err
				}
			}
		}

		if err := tx.Save(item).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		syncItemUsage(tx, "update_planned_item", &before, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPlannedItemByID(id)
}

// MarkPaid moves a planned item to paid. A nil actualDate records today.
func (s *plannedItemService) MarkPaid(id string, actualDate *time.Time) (*models.PlannedItem, error) {
	paidOn := models.Day(s.now())
	if actualDate != nil {
		paidOn = models.Day(*actualDate)
	}
	return s.transition(id, "mark_paid", func(item *models.PlannedItem) error {
		if item.State != models.PlannedItemPlanned {
			return apperrors.WithMessage(apperrors.ErrInvalidStateTransition, "only planned items can be marked as paid")
		}
		item.State = models.PlannedItemPaid
		item.ActualDate = &paidOn
		return nil
	})
}

// CancelPlannedItem cancels a planned or paid item. Cancelled items stop
// counting against budgets and drop out of every report.
func (s *plannedItemService) CancelPlannedItem(id string) (*models.PlannedItem, error) {
	return s.transition(id, "cancel", func(item *models.PlannedItem) error {
		if item.State == models.PlannedItemCancelled {
			return apperrors.WithMessage(apperrors.ErrInvalidStateTransition, "planned item is already cancelled")
		}
		item.State = models.PlannedItemCancelled
		return nil
	})
}

// ResetToPlanned moves a paid item back to planned and clears its actual date.
func (s *plannedItemService) ResetToPlanned(id string) (*models.PlannedItem, error) {
	return s.transition(id, "reset_to_planned", func(item *models.PlannedItem) error {
		if item.State != models.PlannedItemPaid {
			return apperrors.WithMessage(apperrors.ErrInvalidStateTransition, "only paid items can be set back to planned")
		}
		item.State = models.PlannedItemPlanned
		item.ActualDate = nil
		return nil
	})
}

// DeletePlannedItem soft-deletes a planned item and refreshes the budgets it
// counted against.
func (s *plannedItemService) DeletePlannedItem(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		item, err := findPlannedItem(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(item).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		syncItemUsage(tx, "delete_planned_item", item, nil)
		return nil
	})
}

func (s *plannedItemService) transition(id, operation string, apply func(*models.PlannedItem) error) (*models.PlannedItem, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := findPlannedItem(tx, id)
		if err != nil {
			return err
		}
		before := *item
		if err := apply(item); err != nil {
			return err
		}
		if err := tx.Save(item).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		syncItemUsage(tx, operation, &before, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPlannedItemByID(id)
}

func findPlannedItem(db *gorm.DB, id string) (*models.PlannedItem, error) {
	var item models.PlannedItem
	if err := db.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPlannedItemNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &item, nil
}

func validPriority(p models.Priority) bool {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	}
	return false
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
