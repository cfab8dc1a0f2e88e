package shared

// ServiceType identifies one of the conversion or e-wallet services a kiosk offers
type ServiceType string

const (
	ServiceBillToBill   ServiceType = "bill-to-bill"
	ServiceBillToCoin   ServiceType = "bill-to-coin"
	ServiceCoinToBill   ServiceType = "coin-to-bill"
	ServiceUSDToPHP     ServiceType = "usd-to-php"
	ServicePHPToUSD     ServiceType = "php-to-usd"
	ServiceEURToPHP     ServiceType = "eur-to-php"
	ServicePHPToEUR     ServiceType = "php-to-eur"
	ServiceGCashCashIn  ServiceType = "gcash-cash-in"
	ServiceGCashCashOut ServiceType = "gcash-cash-out"
	ServiceMayaCashIn   ServiceType = "maya-cash-in"
	ServiceMayaCashOut  ServiceType = "maya-cash-out"
)

// AllServiceTypes returns the closed set of service types in display order
func AllServiceTypes() []ServiceType {
	return []ServiceType{
		ServiceBillToBill, ServiceBillToCoin, ServiceCoinToBill,
		ServiceUSDToPHP, ServicePHPToUSD, ServiceEURToPHP, ServicePHPToEUR,
		ServiceGCashCashIn, ServiceGCashCashOut, ServiceMayaCashIn, ServiceMayaCashOut,
	}
}

// ParseServiceType validates a raw service type string
func ParseServiceType(raw string) (ServiceType, bool) {
	for _, t := range AllServiceTypes() {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}

// TransactionState defines the lifecycle states of a kiosk transaction
type TransactionState string

const (
	StateCreated         TransactionState = "CREATED"
	StateAwaitingPayment TransactionState = "AWAITING_PAYMENT"
	StatePaymentMatched  TransactionState = "PAYMENT_MATCHED"
	StateConfirmed       TransactionState = "CONFIRMED"
	StateDispensing      TransactionState = "DISPENSING"
	StateCompleted       TransactionState = "COMPLETED"
	StateCancelled       TransactionState = "CANCELLED"
	StateFailed          TransactionState = "FAILED"
)

// IsTerminal reports whether no further transitions are possible
func (s TransactionState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// TerminalStates lists the states a transaction can end in
func TerminalStates() []TransactionState {
	return []TransactionState{StateCompleted, StateCancelled, StateFailed}
}

// NonTerminalStates lists the states of an active transaction
func NonTerminalStates() []TransactionState {
	return []TransactionState{StateCreated, StateAwaitingPayment, StatePaymentMatched, StateConfirmed, StateDispensing}
}

// Phase distinguishes the regular payment window from the top-up window
type Phase string

const (
	PhaseNormal Phase = "NORMAL"
	PhaseTopUp  Phase = "TOP_UP"
)

// InsertKind is the channel money arrives through
type InsertKind string

const (
	KindBill    InsertKind = "bill"
	KindCoin    InsertKind = "coin"
	KindEWallet InsertKind = "ewallet"
)

// ParseInsertKind validates a raw insert kind string
func ParseInsertKind(raw string) (InsertKind, bool) {
	switch InsertKind(raw) {
	case KindBill, KindCoin, KindEWallet:
		return InsertKind(raw), true
	}
	return "", false
}

// Currency is an ISO currency code handled by the kiosk
type Currency string

const (
	CurrencyPHP Currency = "PHP"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// FailureReason defines transaction failure and cancellation categories
type FailureReason string

const (
	FailureReasonPaymentTimeout  FailureReason = "PAYMENT_TIMEOUT"
	FailureReasonUserCancelled   FailureReason = "CANCELLED_BY_USER"
	FailureReasonHardwareFault   FailureReason = "HARDWARE_FAULT"
	FailureReasonPartialDispense FailureReason = "PARTIAL_DISPENSE"
	FailureReasonCrashRecovery   FailureReason = "CRASH_RECOVERY"
	FailureReasonUnsatisfiable   FailureReason = "UNSATISFIABLE_DISPENSE"
)

// OutboxStatus defines journal entry publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
