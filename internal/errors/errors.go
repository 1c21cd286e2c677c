// Package errors defines the coded errors returned by services and rendered
// by the HTTP layer as {"error":{"code","message"}}. Internal causes are
// kept for logging and never serialized.
package errors

import "net/http"

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Internal }

// Is matches on Code, so Wrap and WithMessage copies of a sentinel still
// satisfy errors.Is(err, sentinel).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) clone() *AppError {
	c := *e
	return &c
}

// Wrap copies sentinel and attaches internal as the logged cause.
func Wrap(sentinel *AppError, internal error) *AppError {
	e := sentinel.clone()
	e.Internal = internal
	return e
}

// WithMessage copies sentinel with a client-facing message.
func WithMessage(sentinel *AppError, message string) *AppError {
	e := sentinel.clone()
	e.Message = message
	return e
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrValidation     = &AppError{Code: "VALIDATION_ERROR", Message: "Malformed key, signature or hash", StatusCode: http.StatusUnprocessableEntity}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Organization errors.
var (
	ErrBudgetNotFound     = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrDepartmentNotFound = &AppError{Code: "DEPARTMENT_NOT_FOUND", Message: "Department not found", StatusCode: http.StatusNotFound}
	ErrProjectNotFound    = &AppError{Code: "PROJECT_NOT_FOUND", Message: "Project not found", StatusCode: http.StatusNotFound}
	ErrVendorNotFound     = &AppError{Code: "VENDOR_NOT_FOUND", Message: "Vendor not found", StatusCode: http.StatusNotFound}
	ErrInvalidDateRange   = &AppError{Code: "INVALID_DATE_RANGE", Message: "End date must not be before start date", StatusCode: http.StatusBadRequest}
)

// Transaction and document errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrNoDocument          = &AppError{Code: "NO_DOCUMENT", Message: "No document or hash found for this transaction", StatusCode: http.StatusBadRequest}
	ErrDocumentUnavailable = &AppError{Code: "DOCUMENT_UNAVAILABLE", Message: "Document file not found", StatusCode: http.StatusNotFound}
	ErrDocumentTampered    = &AppError{Code: "DOCUMENT_TAMPERED", Message: "Stored document no longer matches its seal", StatusCode: http.StatusConflict}
	ErrDocumentTooLarge    = &AppError{Code: "DOCUMENT_TOO_LARGE", Message: "Document exceeds the maximum upload size", StatusCode: http.StatusRequestEntityTooLarge}
	ErrDocumentType        = &AppError{Code: "INVALID_DOCUMENT_TYPE", Message: "Invalid file type", StatusCode: http.StatusBadRequest}
)

// Attestation errors.
var (
	ErrNotSigned              = &AppError{Code: "NOT_SIGNED", Message: "No digital signature found for this transaction", StatusCode: http.StatusBadRequest}
	ErrSignatureAlreadyExists = &AppError{Code: "SIGNATURE_ALREADY_EXISTS", Message: "Transaction is already signed", StatusCode: http.StatusConflict}
	ErrSigningKeyNotFound     = &AppError{Code: "SIGNING_KEY_NOT_FOUND", Message: "No signing key exists for this actor", StatusCode: http.StatusNotFound}
)

// Audit errors.
var (
	ErrAuditRecordNotFound = &AppError{Code: "AUDIT_RECORD_NOT_FOUND", Message: "Audit record not found", StatusCode: http.StatusNotFound}
)
