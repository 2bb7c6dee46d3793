package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/filters"
	"cashplan/internal/models"
	"cashplan/internal/pagination"
	"cashplan/internal/reporting"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates a draft budget and computes its initial usage.
func (s *budgetService) CreateBudget(in BudgetInput) (*models.Budget, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name is required")
	}
	if !in.PlannedAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "planned amount must be positive")
	}
	start, end := models.Day(in.PeriodStart), models.Day(in.PeriodEnd)
	if in.PeriodStart.IsZero() || in.PeriodEnd.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period start and end are required")
	}
	if end.Before(start) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period end must not be before period start")
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}

	budget := &models.Budget{
		Name:            name,
		CategoryID:      in.CategoryID,
		PeriodStart:     start,
		PeriodEnd:       end,
		PlannedAmount:   in.PlannedAmount,
		UsedAmount:      decimal.Zero,
		RemainingAmount: in.PlannedAmount,
		Currency:        currency,
		State:           models.BudgetDraft,
		Notes:           in.Notes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := findCategory(tx, in.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		syncBudgetUsage(tx, "create_budget", nil, budget)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBudgetByID(budget.ID)
}

// GetBudgetByID returns a budget with its category.
func (s *budgetService) GetBudgetByID(id string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ?", id).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// ListBudgets returns a page of budgets ordered by period start.
func (s *budgetService) ListBudgets(filter filters.Budgets, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	base := s.db.Model(&models.Budget{}).Scopes(filter.Scope())

	result, err := pagination.Find[models.Budget](base, page,
		"budgets.period_start, budgets.name", pagination.Preload("Category"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// UpdateBudget edits a budget. Changing the category, window or planned
// amount recomputes usage for this budget only.
func (s *budgetService) UpdateBudget(id string, upd BudgetUpdate) (*models.Budget, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		budget, err := findBudget(tx, id)
		if err != nil {
			return err
		}
		before := *budget

		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "budget name cannot be empty")
			}
			budget.Name = name
		}
		if upd.CategoryID != nil && *upd.CategoryID != budget.CategoryID {
			if _, err := findCategory(tx, *upd.CategoryID); err != nil {
				return err
			}
			budget.CategoryID = *upd.CategoryID
		}
		if upd.PeriodStart != nil {
			budget.PeriodStart = models.Day(*upd.PeriodStart)
		}
		if upd.PeriodEnd != nil {
			budget.PeriodEnd = models.Day(*upd.PeriodEnd)
		}
		if budget.PeriodEnd.Before(budget.PeriodStart) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "period end must not be before period start")
		}
		if upd.PlannedAmount != nil {
			if !upd.PlannedAmount.IsPositive() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "planned amount must be positive")
			}
			budget.PlannedAmount = *upd.PlannedAmount
		}
		if upd.Currency != nil && *upd.Currency != "" {
			budget.Currency = strings.ToUpper(*upd.Currency)
		}
		if upd.Notes != nil {
			budget.Notes = *upd.Notes
		}
		budget.RemainingAmount = budget.PlannedAmount.Sub(budget.UsedAmount)

		if err := tx.Save(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		syncBudgetUsage(tx, "update_budget", &before, budget)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBudgetByID(id)
}

// ConfirmBudget moves a draft budget to confirmed.
func (s *budgetService) ConfirmBudget(id string) (*models.Budget, error) {
	return s.transition(id, models.BudgetConfirmed, models.BudgetDraft)
}

// CloseBudget moves a confirmed budget to closed.
func (s *budgetService) CloseBudget(id string) (*models.Budget, error) {
	return s.transition(id, models.BudgetClosed, models.BudgetConfirmed)
}

// ReopenBudget moves a closed budget back to confirmed.
func (s *budgetService) ReopenBudget(id string) (*models.Budget, error) {
	return s.transition(id, models.BudgetConfirmed, models.BudgetClosed)
}

// SetBudgetToDraft moves a confirmed budget back to draft.
func (s *budgetService) SetBudgetToDraft(id string) (*models.Budget, error) {
	return s.transition(id, models.BudgetDraft, models.BudgetConfirmed)
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		budget, err := findBudget(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{SkipHooks: true}).
			Model(&models.PlannedItem{}).
			Where("budget_id = ?", id).
			Update("budget_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(budget).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetBudgetProgress reports the budget's stored usage with the same
// classification as budget analysis.
func (s *budgetService) GetBudgetProgress(id string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(id)
	if err != nil {
		return nil, err
	}

	line := reporting.BudgetLine(budget, "")
	return &BudgetProgress{
		BudgetID:      budget.ID,
		PlannedAmount: line.PlannedAmount,
		UsedAmount:    line.UsedAmount,
		Remaining:     line.RemainingAmount,
		UsagePercent:  line.UsagePercent,
		Variance:      line.Variance,
		Status:        line.Status,
	}, nil
}

// RecomputeBudgets recomputes used and remaining for the given budgets. An
// empty id list recomputes every budget.
func (s *budgetService) RecomputeBudgets(ids []string) ([]models.Budget, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(ids) == 0 {
			if err := tx.Model(&models.Budget{}).Pluck("id", &ids).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		} else {
			var found int64
			ids = uniqueStrings(ids)
			if err := tx.Model(&models.Budget{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if int(found) != len(ids) {
				return apperrors.ErrBudgetNotFound
			}
		}
		if err := recomputeBudgets(tx, ids); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var budgets []models.Budget
	if len(ids) == 0 {
		return budgets, nil
	}
	if err := s.db.Where("id IN ?", ids).Order("period_start, name").Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

func (s *budgetService) transition(id string, to models.BudgetState, from models.BudgetState) (*models.Budget, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		budget, err := findBudget(tx, id)
		if err != nil {
			return err
		}
		if budget.State != from {
			return apperrors.WithMessage(apperrors.ErrInvalidStateTransition,
				"budget must be "+string(from)+" to become "+string(to))
		}
		if err := tx.Model(budget).Update("state", to).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBudgetByID(id)
}

func findBudget(db *gorm.DB, id string) (*models.Budget, error) {
	var budget models.Budget
	if err := db.Where("id = ?", id).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}
