package handler

import (
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/domain/archive"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
)

// CreateTransactionRequest is a customer's service selection.
// Fee is what the display showed; the server prices the transaction itself.
type CreateTransactionRequest struct {
	Type                   string  `json:"type" binding:"required"`
	Amount                 int64   `json:"amount" binding:"required"`
	Fee                    *int64  `json:"fee"`
	SelectedDispenseDenoms []int64 `json:"selected_dispense_denoms"`
}

// InsertRequest reports one bill, coin or e-wallet credit
type InsertRequest struct {
	Denom      int64  `json:"denom" binding:"required"`
	InsertType string `json:"insert_type"`
}

// UpdateInventoryRequest sets dispenser counts, keyed like PHP_BILL_100
type UpdateInventoryRequest struct {
	Counts map[string]int `json:"counts" binding:"required"`
}

// ArchiveQuery is the offset pagination for archive listings
type ArchiveQuery struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// AcceptableDenominationsResponse lists denomination keys storage can still take
type AcceptableDenominationsResponse struct {
	ServiceType   string   `json:"type,omitempty"`
	Denominations []string `json:"denominations"`
}

// HealthResponse is the liveness body
type HealthResponse struct {
	Status     string    `json:"status"`
	BillDevice string    `json:"bill_device"`
	CoinDevice string    `json:"coin_device"`
	Dispenser  string    `json:"dispenser"`
	Timestamp  time.Time `json:"timestamp"`
}

// mapJournal renders journal entries without their outbox bookkeeping
func mapJournal(entries []*journal.Entry) []archive.Transition {
	out := make([]archive.Transition, 0, len(entries))
	for _, e := range entries {
		out = append(out, archive.TransitionFromEntry(e))
	}
	return out
}
