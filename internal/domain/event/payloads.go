package event

// StateChangedPayload accompanies TRANSACTION_STATE_CHANGED, TRANSACTION_COMPLETE
// and TRANSACTION_CANCELLED. Transaction holds the full REST snapshot.
type StateChangedPayload struct {
	TransactionID string `json:"transaction_id"`
	State         string `json:"state"`
	PreviousState string `json:"previous_state,omitempty"`
	Phase         string `json:"phase,omitempty"`
	Transaction   any    `json:"transaction,omitempty"`
}

type TransactionErrorPayload struct {
	TransactionID string `json:"transaction_id"`
	ErrorCode     string `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

type BillStoredPayload struct {
	TransactionID  string `json:"transaction_id"`
	Value          int64  `json:"value"`
	Currency       string `json:"currency"`
	Denomination   string `json:"denomination"`
	InsertedAmount int64  `json:"inserted_amount"`
}

type CoinInsertedPayload struct {
	TransactionID  string `json:"transaction_id"`
	Denomination   int64  `json:"denomination"`
	Currency       string `json:"currency"`
	InsertedAmount int64  `json:"inserted_amount"`
}

type DispenseProgressPayload struct {
	TransactionID   string `json:"transaction_id"`
	CompletedItems  int    `json:"completed_items"`
	TotalItems      int    `json:"total_items"`
	DispensedAmount int64  `json:"dispensed_amount"`
	DispensedBills  int    `json:"dispensed_bills"`
	DispensedCoins  int    `json:"dispensed_coins"`
}

type DispenseCompletePayload struct {
	TransactionID      string `json:"transaction_id"`
	Success            bool   `json:"success"`
	TotalDispensed     int64  `json:"total_dispensed"`
	Shortfall          int64  `json:"shortfall"`
	DispensedBills     int    `json:"dispensed_bills"`
	DispensedCoins     int    `json:"dispensed_coins"`
	FailedDenomination string `json:"failed_denomination,omitempty"`
	FailedCount        int    `json:"failed_count,omitempty"`
	ClaimTicketCode    string `json:"claim_ticket_code,omitempty"`
}

type DevicePayload struct {
	Device     string `json:"device"`
	Connection string `json:"connection"`
	Error      string `json:"error,omitempty"`
}

type InventoryAlertPayload struct {
	Alerts any `json:"alerts"`
}
