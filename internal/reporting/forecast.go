package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cashplan/internal/models"
)

// ForecastTotals extends Totals with the balance after the last line.
type ForecastTotals struct {
	Totals
	Closing decimal.Decimal `json:"closing_balance"`
}

// Period is a forecast bucket summary.
type Period struct {
	Start          time.Time       `json:"start"`
	Income         decimal.Decimal `json:"income"`
	Payment        decimal.Decimal `json:"payment"`
	Net            decimal.Decimal `json:"net"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	LineCount      int             `json:"line_count"`
}

// ForecastStates maps the include-planned switch to the planned item states
// a forecast reads. Switching planned items off narrows the forecast to the
// realised cash flow, paid items only, rather than dropping the state filter.
// Cancelled items are excluded in both cases since they never move cash.
func ForecastStates(includePlanned bool) []models.PlannedItemState {
	if includePlanned {
		return []models.PlannedItemState{models.PlannedItemPlanned, models.PlannedItemPaid}
	}
	return []models.PlannedItemState{models.PlannedItemPaid}
}

// Forecast orders items by planned date, then type with income first, then
// input order, and carries a running balance from opening. The closing
// balance is the last line's balance or opening when there are no lines.
func Forecast(opening decimal.Decimal, items []models.PlannedItem) ([]models.ForecastLine, ForecastTotals) {
	ordered := make([]*models.PlannedItem, len(items))
	for i := range items {
		ordered[i] = &items[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return lineBefore(ordered[i].PlannedDate, ordered[i].Type, ordered[j].PlannedDate, ordered[j].Type)
	})

	totals := ForecastTotals{Totals: zeroTotals(), Closing: opening}
	lines := make([]models.ForecastLine, 0, len(ordered))
	balance := opening
	for i, item := range ordered {
		signed := models.SignedAmount(item.Type, item.Amount)
		balance = balance.Add(signed)
		id := item.ID
		categoryID := item.CategoryID
		lines = append(lines, models.ForecastLine{
			Sequence:      i + 1,
			Date:          models.Day(item.PlannedDate),
			Type:          item.Type,
			Description:   item.Description,
			CategoryID:    &categoryID,
			PartnerID:     item.PartnerID,
			PlannedItemID: &id,
			State:         item.State,
			Amount:        item.Amount.Abs(),
			SignedAmount:  signed,
			BalanceAfter:  balance,
			Currency:      item.Currency,
		})
		totals.add(item.Type, item.Amount)
	}
	totals.Closing = balance
	return lines, totals
}

// BucketStart returns the first day of the bucket containing d.
// Weeks start on Monday.
func BucketStart(d time.Time, g models.GroupBy) time.Time {
	d = models.Day(d)
	switch g {
	case models.GroupByWeek:
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	case models.GroupByMonth:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case models.GroupByQuarter:
		q := (int(d.Month()) - 1) / 3
		return time.Date(d.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

// GroupForecast summarizes ordered forecast lines into buckets. Empty
// buckets are omitted.
func GroupForecast(lines []models.ForecastLine, opening decimal.Decimal, g models.GroupBy) []Period {
	var periods []Period
	balance := opening
	for _, line := range lines {
		start := BucketStart(line.Date, g)
		if len(periods) == 0 || !periods[len(periods)-1].Start.Equal(start) {
			periods = append(periods, Period{
				Start:          start,
				Income:         decimal.Zero,
				Payment:        decimal.Zero,
				Net:            decimal.Zero,
				ClosingBalance: balance,
			})
		}
		p := &periods[len(periods)-1]
		if line.Type == models.FlowIncome {
			p.Income = p.Income.Add(line.Amount)
		} else {
			p.Payment = p.Payment.Add(line.Amount)
		}
		p.Net = p.Income.Sub(p.Payment)
		balance = line.BalanceAfter
		p.ClosingBalance = balance
		p.LineCount++
	}
	return periods
}

// lineBefore orders by day, then income before payment.
func lineBefore(d1 time.Time, t1 models.FlowType, d2 time.Time, t2 models.FlowType) bool {
	a, b := models.Day(d1), models.Day(d2)
	if !a.Equal(b) {
		return a.Before(b)
	}
	return t1 == models.FlowIncome && t2 == models.FlowPayment
}
