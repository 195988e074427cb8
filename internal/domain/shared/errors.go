package shared

import "errors"

// DomainError represents a business-rule violation surfaced to the caller.
// Two DomainErrors match under errors.Is when their codes are equal, so
// callers can compare against the exported sentinels below even when the
// message carries request-specific detail.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound                = "NOT_FOUND"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInvalidState            = "INVALID_STATE"
	CodeAlreadyExists           = "ALREADY_EXISTS"
	CodeUnbalancedEntry         = "UNBALANCED_ENTRY"
	CodeInvalidAccount          = "INVALID_ACCOUNT"
	CodeMixedCurrency           = "MIXED_CURRENCY"
	CodeAccountNotConfigured    = "ACCOUNT_NOT_CONFIGURED"
	CodeAlreadyReversed         = "ALREADY_REVERSED"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeDuplicateLot            = "DUPLICATE_LOT"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeDependentDocumentsExist = "DEPENDENT_DOCUMENTS_EXIST"
	CodeAmountMismatch          = "AMOUNT_MISMATCH"
	CodeExceedsUnallocated      = "EXCEEDS_UNALLOCATED"
	CodeExceedsOutstanding      = "EXCEEDS_OUTSTANDING"
	CodeExceedsReturnable       = "EXCEEDS_RETURNABLE"
	CodeCounterpartyMismatch    = "COUNTERPARTY_MISMATCH"
	CodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
	CodeTransient               = "TRANSIENT"
)

// Common domain errors
var (
	ErrNotFound                = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput            = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState            = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrAlreadyExists           = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrUnbalancedEntry         = NewDomainError(CodeUnbalancedEntry, "Sum of debits does not equal sum of credits")
	ErrInvalidAccount          = NewDomainError(CodeInvalidAccount, "Account is missing or cannot receive postings")
	ErrMixedCurrency           = NewDomainError(CodeMixedCurrency, "Legs must share a single currency")
	ErrAccountNotConfigured    = NewDomainError(CodeAccountNotConfigured, "Required account is not configured")
	ErrAlreadyReversed         = NewDomainError(CodeAlreadyReversed, "Transaction has already been reversed")
	ErrInsufficientStock       = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrDuplicateLot            = NewDomainError(CodeDuplicateLot, "Lot already exists")
	ErrInvalidTransition       = NewDomainError(CodeInvalidTransition, "Status transition is not allowed")
	ErrDependentDocumentsExist = NewDomainError(CodeDependentDocumentsExist, "Dependent documents exist")
	ErrAmountMismatch          = NewDomainError(CodeAmountMismatch, "Payment and credit must equal the outstanding amount")
	ErrExceedsUnallocated      = NewDomainError(CodeExceedsUnallocated, "Amount exceeds unallocated receipt balance")
	ErrExceedsOutstanding      = NewDomainError(CodeExceedsOutstanding, "Amount exceeds document outstanding")
	ErrExceedsReturnable       = NewDomainError(CodeExceedsReturnable, "Quantity exceeds returnable quantity")
	ErrCounterpartyMismatch    = NewDomainError(CodeCounterpartyMismatch, "Counterparties do not match")
	ErrConcurrencyConflict     = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrTransient               = NewDomainError(CodeTransient, "Temporary storage failure, retry the operation")
)

// IsTransient reports whether err is a retryable infrastructure failure
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
