package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/archive"
)

// ErrArchiveUnavailable is returned when the kiosk runs without MongoDB
var ErrArchiveUnavailable = errors.New("transaction archive is not configured")

const (
	DefaultArchivePageSize = 20
	MaxArchivePageSize     = 100
)

// ArchiveServiceImpl implements the ArchiveService interface
type ArchiveServiceImpl struct {
	archiveRepo archive.Repository
	logger      *slog.Logger
}

// NewArchiveService creates a new archive service. archiveRepo may be nil.
func NewArchiveService(logger *slog.Logger, archiveRepo archive.Repository) ArchiveService {
	return &ArchiveServiceImpl{
		archiveRepo: archiveRepo,
		logger:      logger,
	}
}

func (s *ArchiveServiceImpl) List(ctx context.Context, limit, offset int) ([]*archive.Record, int64, error) {
	if s.archiveRepo == nil {
		return nil, 0, ErrArchiveUnavailable
	}
	if limit <= 0 {
		limit = DefaultArchivePageSize
	}
	if limit > MaxArchivePageSize {
		limit = MaxArchivePageSize
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.archiveRepo.ListFinished(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list archived transactions", "limit", limit, "offset", offset, "error", err)
		return nil, 0, err
	}

	total, err := s.archiveRepo.CountFinished(ctx)
	if err != nil {
		s.logger.Error("Failed to count archived transactions", "error", err)
		return nil, 0, err
	}

	return records, total, nil
}

func (s *ArchiveServiceImpl) Get(ctx context.Context, transactionID uuid.UUID) (*archive.Record, error) {
	if s.archiveRepo == nil {
		return nil, ErrArchiveUnavailable
	}
	return s.archiveRepo.Get(ctx, transactionID.String())
}
