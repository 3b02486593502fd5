package errors

import (
	"fmt"
	"time"
)

// ErrorCode identifies an application error class.
type ErrorCode string

const (
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeBadRequest ErrorCode = "BAD_REQUEST"

	// Board errors
	ErrCodeBoardNotFound      ErrorCode = "BOARD_NOT_FOUND"
	ErrCodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"
	ErrCodeEligibility        ErrorCode = "ELIGIBILITY_ERROR"

	// Relay errors
	ErrCodeNetwork          ErrorCode = "NETWORK_ERROR"
	ErrCodeRelayUnreachable ErrorCode = "RELAY_UNREACHABLE"
	ErrCodePublishFailed    ErrorCode = "PUBLISH_FAILED"

	// Invoice errors
	ErrCodeInvalidAddress   ErrorCode = "INVALID_ADDRESS"
	ErrCodeAmountOutOfRange ErrorCode = "AMOUNT_OUT_OF_RANGE"
	ErrCodeInvoiceMismatch  ErrorCode = "INVOICE_MISMATCH"

	// Wallet errors
	ErrCodeWalletMalformed   ErrorCode = "WALLET_MALFORMED"
	ErrCodeWalletUnreachable ErrorCode = "WALLET_UNREACHABLE"
	ErrCodeWalletRejected    ErrorCode = "WALLET_REJECTED"

	// Storage errors
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

// AppError is the typed error carried across service boundaries.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether the error is a missing-resource error.
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound || e.Code == ErrCodeBoardNotFound
}

// IsValidation reports whether the error is a validation error.
func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeVerificationFailed
}

// IsNetwork reports whether the error is a connectivity or timeout error.
func (e *AppError) IsNetwork() bool {
	return e.Code == ErrCodeNetwork ||
		e.Code == ErrCodeRelayUnreachable ||
		e.Code == ErrCodeWalletUnreachable
}

// IsInternal reports whether the error is an internal failure.
func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal || e.Code == ErrCodeStorage
}

// WithDetail attaches a detail field to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID attaches the request id to the error.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Constructors for the common cases.

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewBoardNotFoundError(boardID string) *AppError {
	return New(ErrCodeBoardNotFound, fmt.Sprintf("Board not found: %s", boardID)).
		WithDetail("board_id", boardID)
}

func NewNetworkError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeNetwork, fmt.Sprintf("Network operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewPublishFailedError(err error) *AppError {
	return Wrap(err, ErrCodePublishFailed, "No relay accepted the record")
}

func NewInvalidAddressError(address string, err error) *AppError {
	return Wrap(err, ErrCodeInvalidAddress, fmt.Sprintf("Lightning address cannot be resolved: %s", address)).
		WithDetail("address", address)
}

func NewAmountOutOfRangeError(amountMsat, minMsat, maxMsat int64) *AppError {
	return New(ErrCodeAmountOutOfRange, fmt.Sprintf("Amount %d msat outside allowed range [%d, %d]", amountMsat, minMsat, maxMsat)).
		WithDetail("amount_msat", amountMsat).
		WithDetail("min_msat", minMsat).
		WithDetail("max_msat", maxMsat)
}

func NewInvoiceMismatchError(reason string) *AppError {
	return New(ErrCodeInvoiceMismatch, fmt.Sprintf("Invoice does not match the signed request: %s", reason)).
		WithDetail("reason", reason)
}

func NewWalletMalformedError(reason string) *AppError {
	return New(ErrCodeWalletMalformed, fmt.Sprintf("Wallet connection string is malformed: %s", reason)).
		WithDetail("reason", reason)
}

func NewWalletUnreachableError(err error) *AppError {
	return Wrap(err, ErrCodeWalletUnreachable, "Wallet did not reply in time")
}

func NewWalletRejectedError(code, message string) *AppError {
	return New(ErrCodeWalletRejected, fmt.Sprintf("Wallet rejected the request: %s", message)).
		WithDetail("wallet_error_code", code)
}

func NewEligibilityError(reason string) *AppError {
	return New(ErrCodeEligibility, reason)
}

func NewStorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorage, fmt.Sprintf("Storage operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// AsAppError converts err to *AppError when possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}
