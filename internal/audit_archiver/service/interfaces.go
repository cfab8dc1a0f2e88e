package service

import (
	"context"

	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
)

// ArchivingService folds relayed journal entries into the audit archive.
type ArchivingService interface {
	Archive(ctx context.Context, entry *journal.Entry) error
}
