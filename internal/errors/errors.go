// Package errors provides the error taxonomy for the cashplan API.
// Services return AppError values so handlers can render consistent responses
// without leaking internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target carries the same code. This lets callers match a
// wrapped or re-messaged error against its sentinel with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrTypeMismatch   = &AppError{Code: "TYPE_MISMATCH", Message: "Item type does not match the category type", StatusCode: http.StatusBadRequest}

	ErrInvalidStateTransition = &AppError{Code: "INVALID_STATE_TRANSITION", Message: "This state transition is not allowed", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound      = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse         = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is referenced by planned items, recurring items or budgets", StatusCode: http.StatusConflict}
	ErrCategoryHasChildren   = &AppError{Code: "CATEGORY_HAS_CHILDREN", Message: "Category has child categories", StatusCode: http.StatusConflict}
	ErrCategoryCycle         = &AppError{Code: "CATEGORY_CYCLE", Message: "A category cannot be moved under itself or one of its descendants", StatusCode: http.StatusBadRequest}
	ErrCategoryTypeConflict  = &AppError{Code: "CATEGORY_TYPE_CONFLICT", Message: "Category type conflicts with its parent, children or references", StatusCode: http.StatusConflict}
	ErrDuplicateCategoryCode = &AppError{Code: "DUPLICATE_CATEGORY_CODE", Message: "A category with this code already exists", StatusCode: http.StatusConflict}
)

// Planned item errors.
var (
	ErrPlannedItemNotFound    = &AppError{Code: "PLANNED_ITEM_NOT_FOUND", Message: "Planned item not found", StatusCode: http.StatusNotFound}
	ErrPlannedItemNotEditable = &AppError{Code: "PLANNED_ITEM_NOT_EDITABLE", Message: "Cancelled planned items cannot be edited", StatusCode: http.StatusConflict}
)

// Recurring item errors.
var (
	ErrRecurringItemNotFound = &AppError{Code: "RECURRING_ITEM_NOT_FOUND", Message: "Recurring item not found", StatusCode: http.StatusNotFound}
	ErrRecurringNotActive    = &AppError{Code: "RECURRING_NOT_ACTIVE", Message: "Recurring item is not active", StatusCode: http.StatusConflict}
	ErrRecurringExhausted    = &AppError{Code: "RECURRING_EXHAUSTED", Message: "Recurring item has no further occurrences", StatusCode: http.StatusConflict}
)

// Budget errors.
var (
	ErrBudgetNotFound = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
)

// Report errors.
var (
	ErrReportNotFound         = &AppError{Code: "REPORT_NOT_FOUND", Message: "Report not found", StatusCode: http.StatusNotFound}
	ErrInvoiceFeedUnavailable = &AppError{Code: "INVOICE_FEED_UNAVAILABLE", Message: "Invoice feed is unavailable", StatusCode: http.StatusBadGateway}
)
