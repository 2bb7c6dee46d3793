package invoices

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cashplan/internal/logger"
	"cashplan/internal/models"
)

// Sheet columns, one invoice per row.
const (
	colID = iota
	colNumber
	colSupplierNumber
	colDirection
	colState
	colDueDate
	colIssueDate
	colPartnerID
	colAmountTotal
	colResidual
	colCurrency
	colPaymentVerified
	colExcluded
)

const sheetDateLayout = "2006-01-02"

// SheetsConfig locates the invoice range and the service account used to read it.
type SheetsConfig struct {
	SpreadsheetID      string
	Range              string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// SheetsFeed reads invoices from a Google Sheets range and filters them in memory.
type SheetsFeed struct {
	read func(ctx context.Context) ([][]interface{}, error)
}

// NewSheetsFeed creates a feed backed by the Sheets API.
func NewSheetsFeed(ctx context.Context, cfg SheetsConfig) (*SheetsFeed, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.Range) == "" {
		return nil, errors.New("missing invoice range")
	}

	var credentials []byte
	switch {
	case cfg.ServiceAccountJSON != "":
		credentials = []byte(cfg.ServiceAccountJSON)
	case cfg.ServiceAccountFile != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsFeed{
		read: func(ctx context.Context) ([][]interface{}, error) {
			resp, err := svc.Spreadsheets.Values.Get(cfg.SpreadsheetID, cfg.Range).Context(ctx).Do()
			if err != nil {
				return nil, fmt.Errorf("read range %s: %w", cfg.Range, err)
			}
			return resp.Values, nil
		},
	}, nil
}

// Invoices reads the whole range and returns the rows matching q, ordered by
// due date with sheet order kept for ties.
func (f *SheetsFeed) Invoices(ctx context.Context, q Query) ([]models.Invoice, error) {
	rows, err := f.read(ctx)
	if err != nil {
		return nil, err
	}

	all := ParseRows(rows)
	out := make([]models.Invoice, 0, len(all))
	for i := range all {
		if q.Matches(&all[i]) {
			out = append(out, all[i])
		}
	}
	sortByDue(out)
	return out, nil
}

// ParseRows converts sheet rows to invoices. A header row (first cell "id")
// and blank rows are skipped; malformed rows are logged and skipped.
func ParseRows(rows [][]interface{}) []models.Invoice {
	out := make([]models.Invoice, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 || cell(row, colID) == "" {
			continue
		}
		if strings.EqualFold(cell(row, colID), "id") {
			continue
		}
		inv, err := parseRow(row)
		if err != nil {
			logger.Get().Warnw("skipping invoice row", "row", i+1, "error", err)
			continue
		}
		out = append(out, inv)
	}
	return out
}

func parseRow(row []interface{}) (models.Invoice, error) {
	var inv models.Invoice
	if len(row) < colResidual+1 {
		return inv, fmt.Errorf("expected at least %d columns, got %d", colResidual+1, len(row))
	}

	inv.ID = cell(row, colID)
	inv.Number = cell(row, colNumber)
	inv.SupplierNumber = cell(row, colSupplierNumber)

	inv.Direction = models.InvoiceDirection(strings.ToLower(cell(row, colDirection)))
	if inv.Direction != models.InvoiceCustomer && inv.Direction != models.InvoiceSupplier {
		return inv, fmt.Errorf("unknown direction %q", cell(row, colDirection))
	}
	inv.State = models.InvoiceState(strings.ToLower(cell(row, colState)))

	due, err := time.Parse(sheetDateLayout, cell(row, colDueDate))
	if err != nil {
		return inv, fmt.Errorf("due date: %w", err)
	}
	inv.DueDate = due

	if s := cell(row, colIssueDate); s != "" {
		issued, err := time.Parse(sheetDateLayout, s)
		if err != nil {
			return inv, fmt.Errorf("issue date: %w", err)
		}
		inv.IssueDate = &issued
	}
	if s := cell(row, colPartnerID); s != "" {
		inv.PartnerID = &s
	}

	if inv.AmountTotal, err = parseAmount(cell(row, colAmountTotal)); err != nil {
		return inv, fmt.Errorf("amount total: %w", err)
	}
	if inv.Residual, err = parseAmount(cell(row, colResidual)); err != nil {
		return inv, fmt.Errorf("residual: %w", err)
	}

	inv.Currency = strings.ToUpper(cell(row, colCurrency))
	inv.PaymentVerified = parseBool(cell(row, colPaymentVerified))
	inv.ExcludeFromCashflow = parseBool(cell(row, colExcluded))
	return inv, nil
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return strings.EqualFold(s, "yes") || s == "x"
	}
	return b
}
