package invoices

import (
	"context"

	"gorm.io/gorm"

	"cashplan/internal/models"
)

// GormFeed reads invoices replicated into the local invoices table.
type GormFeed struct {
	db *gorm.DB
}

// NewGormFeed creates a feed over db.
func NewGormFeed(db *gorm.DB) *GormFeed {
	return &GormFeed{db: db}
}

// Invoices returns matching invoices ordered by due date.
func (f *GormFeed) Invoices(ctx context.Context, q Query) ([]models.Invoice, error) {
	tx := f.db.WithContext(ctx).Model(&models.Invoice{}).Where("exclude_from_cashflow = ?", false)
	if len(q.States) > 0 {
		tx = tx.Where("state IN ?", q.States)
	}
	if len(q.Directions) > 0 {
		tx = tx.Where("direction IN ?", q.Directions)
	}
	if q.DueFrom != nil {
		tx = tx.Where("due_date >= ?", models.Day(*q.DueFrom))
	}
	if q.DueTo != nil {
		tx = tx.Where("due_date <= ?", models.Day(*q.DueTo))
	}
	if len(q.PartnerIDs) > 0 {
		tx = tx.Where("partner_id IN ?", q.PartnerIDs)
	}

	var out []models.Invoice
	if err := tx.Order("due_date, created_at, id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
