package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error independently of any transport.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindIntegrity      Kind = "integrity"
	KindTimeout        Kind = "timeout"
	KindRateLimited    Kind = "rate_limited"
	KindUnavailable    Kind = "unavailable" // an upstream dependency failed
	KindInternal       Kind = "internal"
)

// Error codes returned to callers.
const (
	CodeInvalidTerminal     = "SEC_001"
	CodeInvalidSignature    = "SEC_002"
	CodeInvalidPIN          = "AUTH_001"
	CodePINNotSet           = "AUTH_002"
	CodeInvalidToken        = "AUTH_003"
	CodeKycNotApproved      = "AUTH_005"
	CodeBiometricMismatch   = "BIO_001"
	CodeMissingInput        = "BIO_002"
	CodeAmbiguousInput      = "BIO_003"
	CodeExtraction          = "BIO_004"
	CodeNotEnrolled         = "BIO_005"
	CodeResolutionTimeout   = "BIO_006"
	CodeDimensionMismatch   = "BIO_007"
	CodeInvalidEmbedding    = "BIO_008"
	CodeInsufficientBalance = "PAY_001"
	CodeInvalidAmount       = "PAY_002"
	CodeAlreadyProcessed    = "PAY_003"
	CodeNotFound            = "PAY_004"
	CodeGatewayUnavailable  = "PAY_005"
	CodeRateLimit           = "RATE_001"
	CodeInternal            = "SYS_001"
	CodeIntegrity           = "SYS_004"
)

// AppError is a structured error carrying a kind, a stable code and a safe message.
type AppError struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Err     error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, code string, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HasCode reports whether err's chain contains an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// ---- Validation ----

func ErrInvalidAmount() *AppError {
	return New(KindValidation, CodeInvalidAmount, "Amount must be greater than zero with at most two decimal places")
}

func ErrMissingInput() *AppError {
	return New(KindValidation, CodeMissingInput, "Either vector or artifact is required")
}

func ErrAmbiguousInput() *AppError {
	return New(KindValidation, CodeAmbiguousInput, "Provide only one of vector or artifact")
}

func ErrInvalidEmbedding(message string) *AppError {
	return New(KindValidation, CodeInvalidEmbedding, message)
}

func ErrExtraction(err error) *AppError {
	return Wrap(KindValidation, CodeExtraction, "Could not extract palm embedding", err)
}

// Validation returns a generic validation error with a caller-facing message.
func Validation(message string) *AppError {
	return New(KindValidation, CodeInvalidAmount, message)
}

// ---- Authentication ----

func ErrInvalidTerminal() *AppError {
	return New(KindAuthentication, CodeInvalidTerminal, "Invalid terminal credentials")
}

func ErrInvalidSignature() *AppError {
	return New(KindAuthentication, CodeInvalidSignature, "Invalid signature")
}

func ErrBiometricMismatch() *AppError {
	return New(KindAuthentication, CodeBiometricMismatch, "Palm not recognised")
}

func ErrInvalidPIN() *AppError {
	return New(KindAuthentication, CodeInvalidPIN, "Invalid PIN")
}

func ErrInvalidToken() *AppError {
	return New(KindAuthentication, CodeInvalidToken, "Invalid or expired token")
}

// ---- Authorization ----

func ErrKycNotApproved() *AppError {
	return New(KindAuthorization, CodeKycNotApproved, "KYC verification is not approved")
}

func ErrPINNotSet() *AppError {
	return New(KindAuthorization, CodePINNotSet, "Wallet PIN has not been set")
}

// ---- Conflict ----

func ErrInsufficientBalance() *AppError {
	return New(KindConflict, CodeInsufficientBalance, "Insufficient balance in wallet")
}

func ErrAlreadyProcessed() *AppError {
	return New(KindConflict, CodeAlreadyProcessed, "Transaction already processed")
}

// ---- Not found ----

func ErrNotFound(entity string) *AppError {
	return New(KindNotFound, CodeNotFound, fmt.Sprintf("%s not found", entity))
}

func ErrNotEnrolled() *AppError {
	return New(KindNotFound, CodeNotEnrolled, "Palm is not enrolled for this identity")
}

// ---- Integrity ----

func ErrIntegrity(err error) *AppError {
	return Wrap(KindIntegrity, CodeIntegrity, "Stored data failed integrity verification", err)
}

func ErrDimensionMismatch(want, got int) *AppError {
	return New(KindIntegrity, CodeDimensionMismatch,
		fmt.Sprintf("Embedding dimension mismatch: expected %d, got %d", want, got))
}

// ---- Upstream ----

func ErrGatewayUnavailable(err error) *AppError {
	return Wrap(KindUnavailable, CodeGatewayUnavailable, "Payment gateway is unavailable", err)
}

// ---- Timeout / rate ----

func ErrResolutionTimeout(err error) *AppError {
	return Wrap(KindTimeout, CodeResolutionTimeout, "Palm resolution timed out", err)
}

func ErrRateLimitExceeded() *AppError {
	return New(KindRateLimited, CodeRateLimit, "Rate limit exceeded")
}

// ---- System ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(KindInternal, CodeInternal, "Internal server error", err)
}
