package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/events"
	"cashplan/internal/filters"
	"cashplan/internal/logger"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
	"cashplan/internal/recurrence"
)

// recurringService is the recurrence scheduler. It owns recurring item
// templates and materializes planned items from them on demand or in sweeps.
type recurringService struct {
	db        *gorm.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewRecurringService creates a new RecurringItemServicer. A nil publisher
// drops generation events.
func NewRecurringService(db *gorm.DB, publisher events.Publisher) RecurringItemServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &recurringService{db: db, publisher: publisher, now: time.Now}
}

// NextDate returns the first occurrence of item strictly after ref. The
// second result is false when the item is not active or the occurrence would
// fall after its end date.
func NextDate(item *models.RecurringItem, ref time.Time) (time.Time, bool) {
	if item.State != models.RecurringActive {
		return time.Time{}, false
	}
	return schedule(item).Next(ref)
}

func schedule(item *models.RecurringItem) recurrence.Schedule {
	return recurrence.Schedule{
		Unit:     recurrence.Unit(item.RecurrenceUnit),
		Interval: item.Interval,
		Start:    models.Day(item.StartDate),
		End:      models.DayPtr(item.EndDate),
	}
}

// CreateRecurringItem creates an active recurring item.
func (s *recurringService) CreateRecurringItem(in RecurringItemInput) (*models.RecurringItem, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}
	if in.StartDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date is required")
	}
	if in.DaysInAdvance < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "days in advance cannot be negative")
	}
	if in.Type != "" && !in.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or payment")
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}

	item := &models.RecurringItem{
		Description:    strings.TrimSpace(in.Description),
		Type:           in.Type,
		CategoryID:     in.CategoryID,
		Amount:         in.Amount,
		Currency:       currency,
		PartnerID:      in.PartnerID,
		RecurrenceUnit: in.RecurrenceUnit,
		Interval:       in.Interval,
		StartDate:      models.Day(in.StartDate),
		EndDate:        models.DayPtr(in.EndDate),
		AutoGenerate:   in.AutoGenerate,
		DaysInAdvance:  in.DaysInAdvance,
		State:          models.RecurringActive,
		Notes:          in.Notes,
	}
	if err := validateSchedule(item); err != nil {
		return nil, err
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
		if err := tx.Create(item).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetRecurringItemByID(item.ID)
}

// GetRecurringItemByID returns a recurring item with its next date resolved
// against the current time.
func (s *recurringService) GetRecurringItemByID(id string) (*models.RecurringItem, error) {
	var item models.RecurringItem
	if err := s.db.Preload("Category").Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringItemNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.resolveNextDate(&item)
	return &item, nil
}

// ListRecurringItems returns a page of recurring items.
func (s *recurringService) ListRecurringItems(filter filters.RecurringItems, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringItem], error) {
	base := s.db.Model(&models.RecurringItem{}).Scopes(filter.Scope())

	result, err := pagination.Find[models.RecurringItem](base, page,
		"recurring_items.start_date, recurring_items.description", pagination.Preload("Category"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range result.Data {
		s.resolveNextDate(&result.Data[i])
	}
	return result, nil
}

// UpdateRecurringItem edits a recurring item that has not expired.
func (s *recurringService) UpdateRecurringItem(id string, upd RecurringItemUpdate) (*models.RecurringItem, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := findRecurringItem(tx, id)
		if err != nil {
			return err
		}
		if item.State == models.RecurringExpired {
			return apperrors.WithMessage(apperrors.ErrInvalidStateTransition, "expired recurring items cannot be edited")
		}

		if upd.Description != nil {
			d := strings.TrimSpace(*upd.Description)
			if d == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "description cannot be empty")
			}
			item.Description = d
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
		if upd.Amount != nil {
			if !upd.Amount.IsPositive() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
			}
			item.Amount = *upd.Amount
		}
		if upd.Currency != nil && *upd.Currency != "" {
			item.Currency = strings.ToUpper(*upd.Currency)
		}
		if upd.PartnerID != nil {
			item.PartnerID = emptyToNil(*upd.PartnerID)
		}
		if upd.RecurrenceUnit != nil {
			item.RecurrenceUnit = *upd.RecurrenceUnit
		}
		if upd.Interval != nil {
			item.Interval = *upd.Interval
		}
		if upd.StartDate != nil {
			item.StartDate = models.Day(*upd.StartDate)
		}
		if upd.ClearEndDate {
			item.EndDate = nil
		} else if upd.EndDate != nil {
			item.EndDate = models.DayPtr(upd.EndDate)
		}
		if upd.AutoGenerate != nil {
			item.AutoGenerate = *upd.AutoGenerate
		}
		if upd.DaysInAdvance != nil {
			if *upd.DaysInAdvance < 0 {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "days in advance cannot be negative")
			}
			item.DaysInAdvance = *upd.DaysInAdvance
		}
		if upd.Notes != nil {
			item.Notes = *upd.Notes
		}
		if err := validateSchedule(item); err != nil {
			return err
		}

		if err := tx.Save(item).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetRecurringItemByID(id)
}

// DeleteRecurringItem soft-deletes a recurring item. Planned items it
// generated stay and keep their provenance link.
func (s *recurringService) DeleteRecurringItem(id string) error {
	item, err := findRecurringItem(s.db, id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(item).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// SuspendRecurringItem pauses an active item.
func (s *recurringService) SuspendRecurringItem(id string) (*models.RecurringItem, error) {
	return s.transition(id, models.RecurringSuspended, models.RecurringActive)
}

// ActivateRecurringItem resumes a suspended item.
func (s *recurringService) ActivateRecurringItem(id string) (*models.RecurringItem, error) {
	return s.transition(id, models.RecurringActive, models.RecurringSuspended)
}

// ExpireRecurringItem ends an active or suspended item for good.
func (s *recurringService) ExpireRecurringItem(id string) (*models.RecurringItem, error) {
	return s.transition(id, models.RecurringExpired, models.RecurringActive, models.RecurringSuspended)
}

// GetNextDate resolves the item's next occurrence after ref. A nil result
// means there is none.
func (s *recurringService) GetNextDate(id string, ref time.Time) (*time.Time, error) {
	item, err := findRecurringItem(s.db, id)
	if err != nil {
		return nil, err
	}
	next, ok := NextDate(item, ref)
	if !ok {
		return nil, nil
	}
	return &next, nil
}

// GenerateNow materializes one planned item from an active recurring item,
// dated on its next occurrence. An item that has never generated and has no
// next occurrence falls back to its start date.
func (s *recurringService) GenerateNow(ctx context.Context, id string) (*models.PlannedItem, error) {
	ref := s.now()
	var planned *models.PlannedItem

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findRecurringItem(tx, id)
		if err != nil {
			return err
		}
		if item.State != models.RecurringActive {
			return apperrors.ErrRecurringNotActive
		}

		date, ok := NextDate(item, ref)
		if !ok {
			if item.LastGeneratedDate != nil {
				return apperrors.ErrRecurringExhausted
			}
			date = models.Day(item.StartDate)
		}

		planned, err = generate(tx, item, date, "Generated from recurring item: ")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, planned)
	return planned, nil
}

// Sweep generates planned items for every active auto-generating item whose
// next occurrence falls within its lookahead window of ref. An item whose
// occurrence already exists (same description, category and date) is
// skipped, so repeated sweeps with the same ref generate nothing new. Items
// whose end date lies before ref's calendar day are expired; an item with no
// occurrence left but an end date still ahead stays active, so the end date
// can still be extended. Per-item failures are
// logged and counted; they never abort the sweep.
func (s *recurringService) Sweep(ctx context.Context, ref time.Time) (*SweepResult, error) {
	result := &SweepResult{ReferenceTime: ref}

	autoGenerate := true
	var candidates []models.RecurringItem
	if err := s.db.WithContext(ctx).
		Scopes(filters.RecurringItems{
			States:       []models.RecurringState{models.RecurringActive},
			AutoGenerate: &autoGenerate,
		}.Scope()).
		Order("recurring_items.created_at").
		Find(&candidates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log := logger.Get()
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		item := &candidates[i]

		next, ok := NextDate(item, ref)
		if !ok {
			if item.EndDate != nil && models.Day(ref).After(models.Day(*item.EndDate)) {
				if err := s.expireIfActive(ctx, item.ID); err != nil {
					result.Failed++
					log.Errorw("failed to expire recurring item", "error", err, "recurring_item_id", item.ID)
				} else {
					result.Expired++
				}
			}
			continue
		}
		if !recurrence.Due(next, ref, item.DaysInAdvance) {
			continue
		}

		planned, created, err := s.generateOnce(ctx, item.ID, next)
		switch {
		case err != nil:
			result.Failed++
			log.Errorw("failed to generate planned item",
				"error", err,
				"recurring_item_id", item.ID,
				"planned_date", next.Format("2006-01-02"),
			)
		case !created:
			result.Skipped++
		default:
			result.Generated++
			s.publish(ctx, planned)
		}
	}

	log.Infow("recurrence sweep finished",
		"reference_time", ref,
		"candidates", len(candidates),
		"generated", result.Generated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"expired", result.Expired,
	)
	return result, nil
}

// generateOnce runs the existence check and the insert in one transaction,
// re-reading the recurring item so concurrent state changes are honored.
func (s *recurringService) generateOnce(ctx context.Context, id string, date time.Time) (*models.PlannedItem, bool, error) {
	var planned *models.PlannedItem
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := findRecurringItem(tx, id)
		if err != nil {
			return err
		}
		if item.State != models.RecurringActive {
			return nil
		}

		var existing int64
		if err := tx.Model(&models.PlannedItem{}).
			Scopes(filters.PlannedItems{
				Description: item.Description,
				CategoryIDs: []string{item.CategoryID},
				DateFrom:    &date,
				DateTo:      &date,
			}.Scope()).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		planned, err = generate(tx, item, date, "Auto-generated from recurring item: ")
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	return planned, created, err
}

// generate inserts the planned item for one occurrence, records the
// generation on the recurring item and refreshes covering budgets.
func generate(tx *gorm.DB, item *models.RecurringItem, date time.Time, notePrefix string) (*models.PlannedItem, error) {
	date = models.Day(date)
	recurringID := item.ID
	planned := &models.PlannedItem{
		Description:     item.Description,
		Type:            item.Type,
		PlannedDate:     date,
		CategoryID:      item.CategoryID,
		Amount:          item.Amount,
		Currency:        item.Currency,
		Priority:        models.PriorityMedium,
		PartnerID:       item.PartnerID,
		RecurringItemID: &recurringID,
		State:           models.PlannedItemPlanned,
		Notes:           notePrefix + item.Description,
	}
	if err := tx.Create(planned).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(item).Update("last_generated_date", date).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	syncItemUsage(tx, "generate_planned_item", nil, planned)
	return planned, nil
}

func (s *recurringService) expireIfActive(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Model(&models.RecurringItem{}).
		Where("id = ? AND state = ?", id, models.RecurringActive).
		Update("state", models.RecurringExpired).Error
}

func (s *recurringService) publish(ctx context.Context, planned *models.PlannedItem) {
	if planned == nil {
		return
	}
	ev := events.NewPlannedItemGenerated(planned, s.now())
	if err := s.publisher.PublishPlannedItemGenerated(ctx, ev); err != nil {
		logger.Get().Warnw("failed to publish planned item event",
			"error", err,
			"planned_item_id", planned.ID,
			"recurring_item_id", ev.RecurringItemID,
		)
	}
}

func (s *recurringService) transition(id string, to models.RecurringState, from ...models.RecurringState) (*models.RecurringItem, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		item, err := findRecurringItem(tx, id)
		if err != nil {
			return err
		}
		allowed := false
		for _, f := range from {
			if item.State == f {
				allowed = true
			}
		}
		if !allowed {
			return apperrors.WithMessage(apperrors.ErrInvalidStateTransition,
				fmt.Sprintf("cannot move recurring item from %s to %s", item.State, to))
		}
		if err := tx.Model(item).Update("state", to).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetRecurringItemByID(id)
}

func (s *recurringService) resolveNextDate(item *models.RecurringItem) {
	if next, ok := NextDate(item, s.now()); ok {
		item.NextDate = &next
	}
}

func validateSchedule(item *models.RecurringItem) error {
	if err := schedule(item).Validate(); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, strings.TrimPrefix(err.Error(), "recurrence: invalid schedule: "))
	}
	return nil
}

func findRecurringItem(db *gorm.DB, id string) (*models.RecurringItem, error) {
	var item models.RecurringItem
	if err := db.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringItemNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &item, nil
}
