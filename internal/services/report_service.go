package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "cashplan/internal/errors"
	"cashplan/internal/filters"
	"cashplan/internal/invoices"
	"cashplan/internal/logger"
	"cashplan/internal/models"
	"cashplan/internal/recurrence"
	"cashplan/internal/reporting"
)

const lineBatchSize = 200

// reportService is the report aggregator. A report is a header holding its
// filters and totals; loading it re-derives the line set and replaces the
// stored lines and totals in one transaction.
type reportService struct {
	db   *gorm.DB
	feed invoices.Feed
	now  func() time.Time
}

// NewReportService creates a new ReportServicer. Overview reports read
// invoices from feed.
func NewReportService(db *gorm.DB, feed invoices.Feed) ReportServicer {
	if feed == nil {
		feed = invoices.NewGormFeed(db)
	}
	return &reportService{db: db, feed: feed, now: time.Now}
}

// CreateOverview stores an overview header and loads it. The default window
// runs from the first day of the current month to the end of the next one.
func (s *reportService) CreateOverview(ctx context.Context, p OverviewParams) (*models.OverviewReport, error) {
	today := models.Day(s.now())
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	from, to, err := reportWindow(p.DateFrom, p.DateTo, monthStart, recurrence.AddMonths(monthStart, 2).AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	if p.TypeFilter == "" {
		p.TypeFilter = models.TypeFilterAll
	}
	if p.StateFilter == "" {
		p.StateFilter = models.StateFilterAll
	}
	if err := checkReportCategory(s.db, p.CategoryID); err != nil {
		return nil, err
	}

	report := &models.OverviewReport{
		Name:                 defaultName(p.Name, "Cash Flow Overview"),
		DateFrom:             from,
		DateTo:               to,
		TypeFilter:           p.TypeFilter,
		StateFilter:          p.StateFilter,
		CategoryID:           p.CategoryID,
		IncludeSubcategories: p.IncludeSubcategories,
		PartnerIDs:           p.PartnerIDs,
		IncludePlannedItems:  boolOr(p.IncludePlannedItems, true),
		IncludeInvoices:      boolOr(p.IncludeInvoices, true),
		TotalIncome:          decimal.Zero,
		TotalPayment:         decimal.Zero,
		NetCashflow:          decimal.Zero,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.LoadOverview(ctx, report.ID)
}

// LoadOverview re-derives the overview lines. Planned items and invoices are
// read concurrently; invoices ignore the category filter because they carry
// no category.
func (s *reportService) LoadOverview(ctx context.Context, id string) (*models.OverviewReport, error) {
	report, err := findReport[models.OverviewReport](s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	categoryIDs, err := reportCategories(s.db.WithContext(ctx), report.CategoryID, report.IncludeSubcategories)
	if err != nil {
		return nil, err
	}

	var items []models.PlannedItem
	var invs []models.Invoice

	g, gctx := errgroup.WithContext(ctx)
	if report.IncludePlannedItems {
		g.Go(func() error {
			from, to := report.DateFrom, report.DateTo
			return s.db.WithContext(gctx).
				Scopes(filters.PlannedItems{
					DateFrom:    &from,
					DateTo:      &to,
					Types:       reporting.Types(report.TypeFilter),
					States:      reporting.PlannedStates(report.StateFilter),
					CategoryIDs: categoryIDs,
					PartnerIDs:  report.PartnerIDs,
				}.Scope()).
				Order("planned_items.planned_date, planned_items.created_at").
				Find(&items).Error
		})
	}
	if report.IncludeInvoices {
		g.Go(func() error {
			from, to := report.DateFrom, report.DateTo
			found, err := s.feed.Invoices(gctx, invoices.Query{
				States:     reporting.InvoiceStates(report.StateFilter),
				Directions: reporting.InvoiceDirections(report.TypeFilter),
				DueFrom:    &from,
				DueTo:      &to,
				PartnerIDs: report.PartnerIDs,
			})
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInvoiceFeedUnavailable, err)
			}
			invs = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			logger.Get().Errorw("overview sources unavailable", "error", err, "report_id", id)
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	lines, totals := reporting.Overview(items, invs)
	loadedAt := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("report_id = ?", id).Delete(&models.OverviewLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].ReportID = id
		}
		if len(lines) > 0 {
			if err := tx.CreateInBatches(lines, lineBatchSize).Error; err != nil {
				return err
			}
		}
		return tx.Model(report).Updates(map[string]interface{}{
			"total_income":  totals.Income,
			"total_payment": totals.Payment,
			"net_cashflow":  totals.Net,
			"line_count":    len(lines),
			"loaded_at":     loadedAt,
		}).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetOverview(id)
}

// GetOverview returns an overview with its stored lines.
func (s *reportService) GetOverview(id string) (*models.OverviewReport, error) {
	var report models.OverviewReport
	if err := s.db.Preload("Lines", orderBySequence).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, reportLookupError(err)
	}
	return &report, nil
}

// CreateForecast stores a forecast header and loads it. The default window
// runs from today for three months.
func (s *reportService) CreateForecast(ctx context.Context, p ForecastParams) (*ForecastView, error) {
	today := models.Day(s.now())
	from, to, err := reportWindow(p.DateFrom, p.DateTo, today, recurrence.AddMonths(today, 3))
	if err != nil {
		return nil, err
	}
	if p.GroupBy == "" {
		p.GroupBy = models.GroupByMonth
	}
	if err := checkReportCategory(s.db, p.CategoryID); err != nil {
		return nil, err
	}

	report := &models.ForecastReport{
		Name:                 defaultName(p.Name, "Cash Flow Forecast"),
		DateFrom:             from,
		DateTo:               to,
		OpeningBalance:       p.OpeningBalance,
		CategoryID:           p.CategoryID,
		IncludeSubcategories: p.IncludeSubcategories,
		IncludePlanned:       boolOr(p.IncludePlanned, true),
		GroupBy:              p.GroupBy,
		TotalIncome:          decimal.Zero,
		TotalPayment:         decimal.Zero,
		NetCashflow:          decimal.Zero,
		ClosingBalance:       p.OpeningBalance,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.LoadForecast(ctx, report.ID)
}

// LoadForecast re-derives the forecast lines and running balance.
func (s *reportService) LoadForecast(ctx context.Context, id string) (*ForecastView, error) {
	db := s.db.WithContext(ctx)
	report, err := findReport[models.ForecastReport](db, id)
	if err != nil {
		return nil, err
	}
	categoryIDs, err := reportCategories(db, report.CategoryID, report.IncludeSubcategories)
	if err != nil {
		return nil, err
	}

	var items []models.PlannedItem
	from, to := report.DateFrom, report.DateTo
	if err := db.Scopes(filters.PlannedItems{
		DateFrom:    &from,
		DateTo:      &to,
		States:      reporting.ForecastStates(report.IncludePlanned),
		CategoryIDs: categoryIDs,
	}.Scope()).
		Order("planned_items.planned_date, planned_items.created_at").
		Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	lines, totals := reporting.Forecast(report.OpeningBalance, items)
	loadedAt := s.now()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("report_id = ?", id).Delete(&models.ForecastLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].ReportID = id
		}
		if len(lines) > 0 {
			if err := tx.CreateInBatches(lines, lineBatchSize).Error; err != nil {
				return err
			}
		}
		return tx.Model(report).Updates(map[string]interface{}{
			"total_income":    totals.Income,
			"total_payment":   totals.Payment,
			"net_cashflow":    totals.Net,
			"closing_balance": totals.Closing,
			"line_count":      len(lines),
			"loaded_at":       loadedAt,
		}).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetForecast(id)
}

// GetForecast returns a forecast with its lines and period summaries.
func (s *reportService) GetForecast(id string) (*ForecastView, error) {
	var report models.ForecastReport
	if err := s.db.Preload("Lines", orderBySequence).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, reportLookupError(err)
	}
	periods := reporting.GroupForecast(report.Lines, report.OpeningBalance, report.GroupBy)
	if periods == nil {
		periods = []reporting.Period{}
	}
	return &ForecastView{Report: &report, Periods: periods}, nil
}

// CreateBudgetAnalysis stores a budget analysis header and loads it. The
// default window runs from the first day of the current month to today.
func (s *reportService) CreateBudgetAnalysis(ctx context.Context, p BudgetAnalysisParams) (*models.BudgetReport, error) {
	today := models.Day(s.now())
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	from, to, err := reportWindow(p.DateFrom, p.DateTo, monthStart, today)
	if err != nil {
		return nil, err
	}
	if p.StateFilter == "" {
		p.StateFilter = models.BudgetStateFilterConfirmed
	}
	if p.VarianceFilter == "" {
		p.VarianceFilter = models.VarianceAll
	}
	if err := checkReportCategory(s.db, p.CategoryID); err != nil {
		return nil, err
	}

	report := &models.BudgetReport{
		Name:                 defaultName(p.Name, "Budget Analysis"),
		DateFrom:             from,
		DateTo:               to,
		CategoryID:           p.CategoryID,
		IncludeSubcategories: p.IncludeSubcategories,
		StateFilter:          p.StateFilter,
		VarianceFilter:       p.VarianceFilter,
		TotalPlanned:         decimal.Zero,
		TotalUsed:            decimal.Zero,
		TotalRemaining:       decimal.Zero,
		TotalVariance:        decimal.Zero,
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.LoadBudgetAnalysis(ctx, report.ID)
}

// LoadBudgetAnalysis recomputes the usage of every budget overlapping the
// window, then classifies them and replaces the stored lines. The recompute
// shares the line replacement's transaction.
func (s *reportService) LoadBudgetAnalysis(ctx context.Context, id string) (*models.BudgetReport, error) {
	db := s.db.WithContext(ctx)
	report, err := findReport[models.BudgetReport](db, id)
	if err != nil {
		return nil, err
	}
	categoryIDs, err := reportCategories(db, report.CategoryID, report.IncludeSubcategories)
	if err != nil {
		return nil, err
	}

	from, to := report.DateFrom, report.DateTo
	filter := filters.Budgets{
		CategoryIDs: categoryIDs,
		States:      reporting.BudgetStates(report.StateFilter),
		OverlapFrom: &from,
		OverlapTo:   &to,
	}

	loadedAt := s.now()
	err = db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.Budget{}).Scopes(filter.Scope()).Pluck("budgets.id", &ids).Error; err != nil {
			return err
		}
		if err := recomputeBudgets(tx, ids); err != nil {
			return err
		}

		var budgets []models.Budget
		if len(ids) > 0 {
			if err := tx.Preload("Category").Where("id IN ?", ids).Find(&budgets).Error; err != nil {
				return err
			}
		}
		names := make(map[string]string, len(budgets))
		for _, b := range budgets {
			if b.Category != nil {
				names[b.CategoryID] = b.Category.Name
			}
		}
		sort.SliceStable(budgets, func(i, j int) bool {
			ci, cj := names[budgets[i].CategoryID], names[budgets[j].CategoryID]
			if ci != cj {
				return ci < cj
			}
			return budgets[i].Name < budgets[j].Name
		})

		lines, totals := reporting.BudgetAnalysis(budgets, names, report.VarianceFilter)

		if err := tx.Unscoped().Where("report_id = ?", id).Delete(&models.BudgetReportLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].ReportID = id
		}
		if len(lines) > 0 {
			if err := tx.CreateInBatches(lines, lineBatchSize).Error; err != nil {
				return err
			}
		}
		return tx.Model(report).Updates(map[string]interface{}{
			"total_planned":   totals.Planned,
			"total_used":      totals.Used,
			"total_remaining": totals.Remaining,
			"total_variance":  totals.Variance,
			"line_count":      len(lines),
			"loaded_at":       loadedAt,
		}).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetBudgetAnalysis(id)
}

// GetBudgetAnalysis returns a budget analysis with its stored lines.
func (s *reportService) GetBudgetAnalysis(id string) (*models.BudgetReport, error) {
	var report models.BudgetReport
	if err := s.db.Preload("Lines", orderBySequence).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, reportLookupError(err)
	}
	return &report, nil
}

type reportHeader interface {
	models.OverviewReport | models.ForecastReport | models.BudgetReport
}

func findReport[T reportHeader](db *gorm.DB, id string) (*T, error) {
	var report T
	if err := db.Where("id = ?", id).First(&report).Error; err != nil {
		return nil, reportLookupError(err)
	}
	return &report, nil
}

func reportLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrReportNotFound
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

func orderBySequence(db *gorm.DB) *gorm.DB {
	return db.Order("sequence")
}

// reportWindow applies defaults to an optional date range and validates it.
func reportWindow(from, to *time.Time, defaultFrom, defaultTo time.Time) (time.Time, time.Time, error) {
	f, t := defaultFrom, defaultTo
	if from != nil {
		f = models.Day(*from)
	}
	if to != nil {
		t = models.Day(*to)
	}
	if t.Before(f) {
		return f, t, apperrors.WithMessage(apperrors.ErrInvalidInput, "date_to must not be before date_from")
	}
	return f, t, nil
}

func checkReportCategory(db *gorm.DB, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	_, err := findCategory(db, *categoryID)
	return err
}

// reportCategories resolves a report's category filter to the ids it
// matches. No category means no restriction.
func reportCategories(db *gorm.DB, categoryID *string, includeSubcategories bool) ([]string, error) {
	if categoryID == nil {
		return nil, nil
	}
	if !includeSubcategories {
		return []string{*categoryID}, nil
	}
	return categorySubtree(db, *categoryID)
}

func defaultName(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
