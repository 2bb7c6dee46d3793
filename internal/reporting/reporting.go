// Package reporting turns planned items, invoices and budgets into report
// lines and totals. It performs no I/O; the report service feeds it records
// and persists what it returns.
package reporting

import (
	"sort"

	"github.com/shopspring/decimal"

	"cashplan/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Totals are the cash-flow sums of a set of lines.
type Totals struct {
	Income  decimal.Decimal `json:"total_income"`
	Payment decimal.Decimal `json:"total_payment"`
	Net     decimal.Decimal `json:"net_cashflow"`
}

func (t *Totals) add(typ models.FlowType, amount decimal.Decimal) {
	if typ == models.FlowIncome {
		t.Income = t.Income.Add(amount.Abs())
	} else {
		t.Payment = t.Payment.Add(amount.Abs())
	}
	t.Net = t.Income.Sub(t.Payment)
}

// Types maps a type filter to the flow types it keeps. Nil means all.
func Types(f models.TypeFilter) []models.FlowType {
	switch f {
	case models.TypeFilterIncome:
		return []models.FlowType{models.FlowIncome}
	case models.TypeFilterPayment:
		return []models.FlowType{models.FlowPayment}
	default:
		return nil
	}
}

// PlannedStates maps an overview state filter to planned item states.
// Cancelled items never reach a report.
func PlannedStates(f models.StateFilter) []models.PlannedItemState {
	switch f {
	case models.StateFilterPlanned:
		return []models.PlannedItemState{models.PlannedItemPlanned}
	case models.StateFilterPaid:
		return []models.PlannedItemState{models.PlannedItemPaid}
	default:
		return []models.PlannedItemState{models.PlannedItemPlanned, models.PlannedItemPaid}
	}
}

// InvoiceStates maps an overview state filter to the invoice states queried
// from the feed.
func InvoiceStates(f models.StateFilter) []models.InvoiceState {
	switch f {
	case models.StateFilterPlanned:
		return []models.InvoiceState{models.InvoiceOpen}
	case models.StateFilterPaid:
		return []models.InvoiceState{models.InvoicePaid}
	default:
		return []models.InvoiceState{models.InvoiceOpen, models.InvoicePaid}
	}
}

// InvoiceDirections maps a type filter to invoice directions: customer
// invoices are income, supplier invoices are payments.
func InvoiceDirections(f models.TypeFilter) []models.InvoiceDirection {
	switch f {
	case models.TypeFilterIncome:
		return []models.InvoiceDirection{models.InvoiceCustomer}
	case models.TypeFilterPayment:
		return []models.InvoiceDirection{models.InvoiceSupplier}
	default:
		return []models.InvoiceDirection{models.InvoiceCustomer, models.InvoiceSupplier}
	}
}

// PlannedItemLine converts a planned item to an overview line.
func PlannedItemLine(item *models.PlannedItem) models.OverviewLine {
	id := item.ID
	categoryID := item.CategoryID
	return models.OverviewLine{
		Source:        models.SourcePlannedItem,
		Date:          models.Day(item.PlannedDate),
		Type:          item.Type,
		Description:   item.Description,
		CategoryID:    &categoryID,
		PartnerID:     item.PartnerID,
		PlannedItemID: &id,
		State:         item.State,
		Amount:        item.Amount.Abs(),
		SignedAmount:  models.SignedAmount(item.Type, item.Amount),
		Currency:      item.Currency,
	}
}

// DocumentLabel is the display reference of an invoice.
func DocumentLabel(inv *models.Invoice) string {
	if inv.Direction == models.InvoiceSupplier {
		return "Supplier Invoice " + inv.SupplierNumber
	}
	return "Customer Invoice " + inv.Number
}

// InvoiceLine converts an invoice to an overview line. Invoices with nothing
// left to settle produce no line.
func InvoiceLine(inv *models.Invoice) (models.OverviewLine, bool) {
	if inv.Residual.IsZero() {
		return models.OverviewLine{}, false
	}

	typ := models.FlowIncome
	if inv.Direction == models.InvoiceSupplier {
		typ = models.FlowPayment
	}
	state := models.PlannedItemPlanned
	if inv.PaymentVerified || inv.State == models.InvoicePaid {
		state = models.PlannedItemPaid
	}

	id := inv.ID
	label := DocumentLabel(inv)
	return models.OverviewLine{
		Source:        models.SourceInvoice,
		Date:          models.Day(inv.DueDate),
		Type:          typ,
		Description:   label,
		DocumentLabel: label,
		PartnerID:     inv.PartnerID,
		InvoiceID:     &id,
		State:         state,
		Amount:        inv.Residual.Abs(),
		SignedAmount:  models.SignedAmount(typ, inv.Residual),
		Currency:      inv.Currency,
	}, true
}

// Overview assembles overview lines from planned items and invoices, orders
// them by date and type (income first) keeping source order for ties, numbers
// them and sums the totals.
func Overview(items []models.PlannedItem, invoices []models.Invoice) ([]models.OverviewLine, Totals) {
	lines := make([]models.OverviewLine, 0, len(items)+len(invoices))
	for i := range items {
		lines = append(lines, PlannedItemLine(&items[i]))
	}
	for i := range invoices {
		if line, ok := InvoiceLine(&invoices[i]); ok {
			lines = append(lines, line)
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lineBefore(lines[i].Date, lines[i].Type, lines[j].Date, lines[j].Type)
	})

	totals := zeroTotals()
	for i := range lines {
		lines[i].Sequence = i + 1
		totals.add(lines[i].Type, lines[i].Amount)
	}
	return lines, totals
}

func zeroTotals() Totals {
	return Totals{Income: decimal.Zero, Payment: decimal.Zero, Net: decimal.Zero}
}
