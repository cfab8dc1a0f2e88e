package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrorKind classifies a kiosk domain failure. Handlers map kinds to HTTP
// statuses; everything else compares kinds through errors.Is.
type ErrorKind string

const (
	KindInvalidAmount                  ErrorKind = "INVALID_AMOUNT"
	KindInvalidServiceType             ErrorKind = "INVALID_SERVICE_TYPE"
	KindUnsupportedConfiguration       ErrorKind = "UNSUPPORTED_CONFIGURATION"
	KindConflictingTransaction         ErrorKind = "CONFLICTING_TRANSACTION"
	KindUnknownTransaction             ErrorKind = "UNKNOWN_TRANSACTION"
	KindTransactionNotAcceptingPayment ErrorKind = "TRANSACTION_NOT_ACCEPTING_PAYMENT"
	KindAmountNotMatched               ErrorKind = "AMOUNT_NOT_MATCHED"
	KindCannotCancelInFlight           ErrorKind = "CANNOT_CANCEL_IN_FLIGHT"
	KindUnsatisfiableDispenseAmount    ErrorKind = "UNSATISFIABLE_DISPENSE_AMOUNT"
	KindHardwareFault                  ErrorKind = "HARDWARE_FAULT"
	KindConnectivityLost               ErrorKind = "CONNECTIVITY_LOST"
	KindInvalidTransition              ErrorKind = "INVALID_TRANSITION"
)

// Sentinels for errors.Is; only the Kind is compared.
var (
	ErrInvalidAmount                  = &Error{Kind: KindInvalidAmount}
	ErrInvalidServiceType             = &Error{Kind: KindInvalidServiceType}
	ErrUnsupportedConfiguration       = &Error{Kind: KindUnsupportedConfiguration}
	ErrConflictingTransaction         = &Error{Kind: KindConflictingTransaction}
	ErrUnknownTransaction             = &Error{Kind: KindUnknownTransaction}
	ErrTransactionNotAcceptingPayment = &Error{Kind: KindTransactionNotAcceptingPayment}
	ErrAmountNotMatched               = &Error{Kind: KindAmountNotMatched}
	ErrCannotCancelInFlight           = &Error{Kind: KindCannotCancelInFlight}
	ErrUnsatisfiableDispenseAmount    = &Error{Kind: KindUnsatisfiableDispenseAmount}
	ErrHardwareFault                  = &Error{Kind: KindHardwareFault}
	ErrConnectivityLost               = &Error{Kind: KindConnectivityLost}
	ErrInvalidTransition              = &Error{Kind: KindInvalidTransition}
)

// Error is a typed kiosk failure carrying enough detail for a display message
type Error struct {
	Kind          ErrorKind
	Message       string
	TransactionID uuid.UUID
	State         TransactionState
	Cause         error
}

// NewError builds an Error of the given kind with a formatted message
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.TransactionID != uuid.Nil {
		return fmt.Sprintf("%s: %s (transaction %s)", e.Kind, e.Message, e.TransactionID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// For attaches transaction context to the error
func (e *Error) For(id uuid.UUID, state TransactionState) *Error {
	e.TransactionID = id
	e.State = state
	return e
}

// Wrap attaches an underlying cause, typically a device error
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}
