package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cashplan/internal/filters"
	"cashplan/internal/logger"
	"cashplan/internal/models"
)

// Budget usage is derived data: used is the sum of |amount| over the
// non-cancelled planned items of the budget's category dated inside its
// window, and remaining is planned minus used. Every write that can change
// either side recomputes the affected budgets inside its own transaction.

// recomputeBudgets refreshes used and remaining for the given budgets.
func recomputeBudgets(tx *gorm.DB, ids []string) error {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil
	}

	var budgets []models.Budget
	if err := tx.Scopes(filters.Budgets{IDs: ids}.Scope()).Find(&budgets).Error; err != nil {
		return err
	}

	for i := range budgets {
		b := &budgets[i]
		used, err := usedAmount(tx, b)
		if err != nil {
			return err
		}
		if err := tx.Model(b).Updates(map[string]interface{}{
			"used_amount":      used,
			"remaining_amount": b.PlannedAmount.Sub(used),
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// usedAmount sums the planned items that count against b. Both window
// bounds are inclusive.
func usedAmount(tx *gorm.DB, b *models.Budget) (decimal.Decimal, error) {
	from, to := b.PeriodStart, b.PeriodEnd
	var amounts []decimal.Decimal
	err := tx.Model(&models.PlannedItem{}).
		Scopes(filters.PlannedItems{
			CategoryIDs:   []string{b.CategoryID},
			DateFrom:      &from,
			DateTo:        &to,
			ExcludeStates: []models.PlannedItemState{models.PlannedItemCancelled},
		}.Scope()).
		Pluck("planned_items.amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}

	used := decimal.Zero
	for _, a := range amounts {
		used = used.Add(a.Abs())
	}
	return used, nil
}

// itemTouchpoints lists the (category, day) pairs a planned item write can
// affect: where the item was before and where it is after. Either side may be
// nil for creates and deletes.
func itemTouchpoints(before, after *models.PlannedItem) []filters.Coverage {
	var points []filters.Coverage
	for _, it := range []*models.PlannedItem{before, after} {
		if it == nil {
			continue
		}
		p := filters.Coverage{CategoryID: it.CategoryID, Date: models.Day(it.PlannedDate)}
		duplicate := false
		for _, q := range points {
			if q.CategoryID == p.CategoryID && q.Date.Equal(p.Date) {
				duplicate = true
			}
		}
		if !duplicate {
			points = append(points, p)
		}
	}
	return points
}

// budgetNeedsRecompute reports whether a budget write changed anything used
// in its usage computation. A nil before means the budget is new.
func budgetNeedsRecompute(before, after *models.Budget) bool {
	if after == nil {
		return false
	}
	if before == nil {
		return true
	}
	return before.CategoryID != after.CategoryID ||
		!before.PlannedAmount.Equal(after.PlannedAmount) ||
		!models.Day(before.PeriodStart).Equal(models.Day(after.PeriodStart)) ||
		!models.Day(before.PeriodEnd).Equal(models.Day(after.PeriodEnd))
}

// coveringBudgetIDs returns the ids of budgets that cover any of the points.
func coveringBudgetIDs(tx *gorm.DB, points []filters.Coverage) ([]string, error) {
	if len(points) == 0 {
		return nil, nil
	}
	var ids []string
	err := tx.Model(&models.Budget{}).
		Scopes(filters.Budgets{Covering: points}.Scope()).
		Pluck("budgets.id", &ids).Error
	return ids, err
}

// syncItemUsage recomputes every budget affected by a planned item write.
// It runs under a savepoint of the caller's transaction; a failure is logged
// and rolled back to the savepoint so the item write itself still commits.
func syncItemUsage(tx *gorm.DB, operation string, before, after *models.PlannedItem) {
	points := itemTouchpoints(before, after)
	if len(points) == 0 {
		return
	}

	var ids []string
	err := tx.Transaction(func(sp *gorm.DB) error {
		var err error
		if ids, err = coveringBudgetIDs(sp, points); err != nil {
			return err
		}
		return recomputeBudgets(sp, ids)
	})
	if err != nil {
		itemID := ""
		if after != nil {
			itemID = after.ID
		} else if before != nil {
			itemID = before.ID
		}
		logger.Get().Errorw("budget usage recompute failed",
			"error", err,
			"operation", operation,
			"planned_item_id", itemID,
			"budget_ids", ids,
		)
	}
}

// syncBudgetUsage recomputes a budget after its own write when the write
// touched category, amount or window. Failures are handled like syncItemUsage.
func syncBudgetUsage(tx *gorm.DB, operation string, before, after *models.Budget) {
	if !budgetNeedsRecompute(before, after) {
		return
	}
	err := tx.Transaction(func(sp *gorm.DB) error {
		return recomputeBudgets(sp, []string{after.ID})
	})
	if err != nil {
		logger.Get().Errorw("budget usage recompute failed",
			"error", err,
			"operation", operation,
			"budget_ids", []string{after.ID},
		)
	}
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
