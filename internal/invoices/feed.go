// Package invoices reads externally issued invoices for cash reports. The
// planner never writes invoices; a Feed only answers queries.
package invoices

import (
	"context"
	"sort"
	"time"

	"cashplan/internal/models"
)

// Query selects invoices. Empty slices and nil bounds add no condition.
type Query struct {
	States     []models.InvoiceState
	Directions []models.InvoiceDirection
	DueFrom    *time.Time
	DueTo      *time.Time
	PartnerIDs []string
}

// Matches applies the query to a single invoice in memory. Invoices flagged
// as excluded from cash reports never match.
func (q Query) Matches(inv *models.Invoice) bool {
	if inv.ExcludeFromCashflow {
		return false
	}
	if len(q.States) > 0 && !contains(q.States, inv.State) {
		return false
	}
	if len(q.Directions) > 0 && !contains(q.Directions, inv.Direction) {
		return false
	}
	due := models.Day(inv.DueDate)
	if q.DueFrom != nil && due.Before(models.Day(*q.DueFrom)) {
		return false
	}
	if q.DueTo != nil && due.After(models.Day(*q.DueTo)) {
		return false
	}
	if len(q.PartnerIDs) > 0 && (inv.PartnerID == nil || !contains(q.PartnerIDs, *inv.PartnerID)) {
		return false
	}
	return true
}

// Feed is a source of invoices.
type Feed interface {
	Invoices(ctx context.Context, q Query) ([]models.Invoice, error)
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortByDue(invs []models.Invoice) {
	sort.SliceStable(invs, func(i, j int) bool {
		return models.Day(invs[i].DueDate).Before(models.Day(invs[j].DueDate))
	})
}
