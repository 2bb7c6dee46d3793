package reporting

import (
	"github.com/shopspring/decimal"

	"cashplan/internal/models"
)

var (
	thresholdGood    = decimal.NewFromInt(50)
	thresholdOnTrack = decimal.NewFromInt(90)
	thresholdWarning = decimal.NewFromInt(100)
)

// BudgetTotals sums budget analysis lines.
type BudgetTotals struct {
	Planned   decimal.Decimal `json:"total_planned"`
	Used      decimal.Decimal `json:"total_used"`
	Remaining decimal.Decimal `json:"total_remaining"`
	Variance  decimal.Decimal `json:"total_variance"`
}

// UsagePercent is used/planned*100, or zero for an unfunded budget.
func UsagePercent(planned, used decimal.Decimal) decimal.Decimal {
	if planned.IsZero() {
		return decimal.Zero
	}
	return used.Div(planned).Mul(hundred)
}

// Classify buckets a usage percent into a budget status.
func Classify(usage decimal.Decimal) models.BudgetStatus {
	switch {
	case usage.LessThan(thresholdGood):
		return models.BudgetStatusGood
	case usage.LessThan(thresholdOnTrack):
		return models.BudgetStatusOnTrack
	case usage.LessThan(thresholdWarning):
		return models.BudgetStatusWarning
	default:
		return models.BudgetStatusOverBudget
	}
}

// BudgetStates maps the budget analysis state filter to budget states. Nil
// means all states.
func BudgetStates(f models.BudgetStateFilter) []models.BudgetState {
	switch f {
	case models.BudgetStateFilterAll:
		return nil
	case models.BudgetStateFilterDraft:
		return []models.BudgetState{models.BudgetDraft}
	case models.BudgetStateFilterClosed:
		return []models.BudgetState{models.BudgetClosed}
	default:
		return []models.BudgetState{models.BudgetConfirmed}
	}
}

// BudgetLine computes the comparison line for one budget. Status is
// classified from the exact usage percent; the stored percent is truncated to
// two places so it never reads above a threshold the status has not reached.
func BudgetLine(b *models.Budget, categoryName string) models.BudgetReportLine {
	usage := UsagePercent(b.PlannedAmount, b.UsedAmount)
	return models.BudgetReportLine{
		BudgetID:        b.ID,
		BudgetName:      b.Name,
		CategoryID:      b.CategoryID,
		CategoryName:    categoryName,
		PeriodStart:     models.Day(b.PeriodStart),
		PeriodEnd:       models.Day(b.PeriodEnd),
		BudgetState:     b.State,
		PlannedAmount:   b.PlannedAmount,
		UsedAmount:      b.UsedAmount,
		RemainingAmount: b.RemainingAmount,
		UsagePercent:    usage.Truncate(2),
		Variance:        b.UsedAmount.Sub(b.PlannedAmount),
		Status:          Classify(usage),
		Currency:        b.Currency,
	}
}

// MatchesVariance applies the variance filter to a line. The within filter
// keeps the lines whose status is warning or over budget, i.e. usage at or
// above 90%.
func MatchesVariance(line *models.BudgetReportLine, f models.VarianceFilter) bool {
	switch f {
	case models.VarianceOver:
		return line.RemainingAmount.IsNegative()
	case models.VarianceUnder:
		return line.RemainingAmount.IsPositive()
	case models.VarianceWithin:
		return line.Status == models.BudgetStatusWarning || line.Status == models.BudgetStatusOverBudget
	default:
		return true
	}
}

// BudgetAnalysis builds lines for budgets already ordered by category and
// name, drops those rejected by the variance filter, numbers the survivors
// and sums them.
func BudgetAnalysis(budgets []models.Budget, categoryNames map[string]string, f models.VarianceFilter) ([]models.BudgetReportLine, BudgetTotals) {
	totals := BudgetTotals{Planned: decimal.Zero, Used: decimal.Zero, Remaining: decimal.Zero, Variance: decimal.Zero}
	lines := make([]models.BudgetReportLine, 0, len(budgets))
	for i := range budgets {
		line := BudgetLine(&budgets[i], categoryNames[budgets[i].CategoryID])
		if !MatchesVariance(&line, f) {
			continue
		}
		line.Sequence = len(lines) + 1
		totals.Planned = totals.Planned.Add(line.PlannedAmount)
		totals.Used = totals.Used.Add(line.UsedAmount)
		totals.Remaining = totals.Remaining.Add(line.RemainingAmount)
		totals.Variance = totals.Variance.Add(line.Variance)
		lines = append(lines, line)
	}
	return lines, totals
}
