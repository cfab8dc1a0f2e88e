package components

import (
	"log/slog"

	"github.com/kiosk-transaction-orchestrator/internal/domain/fee"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/transaction_engine/service"
)

type RequestValidatorImpl struct {
	catalog fee.Catalog
	logger  *slog.Logger
}

func NewRequestValidator(catalog fee.Catalog, logger *slog.Logger) service.RequestValidator {
	return &RequestValidatorImpl{
		catalog: catalog,
		logger:  logger,
	}
}

// ValidateCreate resolves the service and the dispense denominations the
// customer picked
func (v *RequestValidatorImpl) ValidateCreate(req service.CreateRequest) (fee.ServiceConfig, []shared.Denomination, error) {
	serviceType, ok := shared.ParseServiceType(req.ServiceType)
	if !ok {
		return fee.ServiceConfig{}, nil, shared.NewError(shared.KindInvalidServiceType,
			"unknown service type %q", req.ServiceType)
	}
	svc, err := v.catalog.Lookup(serviceType)
	if err != nil {
		return fee.ServiceConfig{}, nil, err
	}

	if req.Amount <= 0 {
		return fee.ServiceConfig{}, nil, shared.NewError(shared.KindInvalidAmount,
			"amount must be positive, got %d", req.Amount)
	}
	if !svc.AllowsAmount(req.Amount) {
		return fee.ServiceConfig{}, nil, shared.NewError(shared.KindInvalidAmount,
			"%d is not an amount option for %s", req.Amount, svc.Type)
	}

	selected, err := svc.ResolveDispense(req.DispenseDenoms)
	if err != nil {
		return fee.ServiceConfig{}, nil, err
	}
	return svc, selected, nil
}

// ValidateAcceptance turns a raw acceptance into a denomination the service takes
func (v *RequestValidatorImpl) ValidateAcceptance(svc fee.ServiceConfig, req service.AcceptanceRequest) (shared.Denomination, error) {
	kind, ok := shared.ParseInsertKind(req.Kind)
	if !ok {
		return shared.Denomination{}, shared.NewError(shared.KindInvalidAmount, "unknown insert type %q", req.Kind)
	}
	d := shared.Denomination{Currency: svc.InsertCurrency, Kind: kind, Value: req.Denomination}
	if !svc.Accepts(d) {
		logger := v.logger
		if req.CorrelationID != "" {
			logger = v.logger.With("correlation_id", req.CorrelationID)
		}
		logger.Warn("Unacceptable denomination", "type", svc.Type, "denomination", req.Denomination, "insert_type", req.Kind)
		return shared.Denomination{}, shared.NewError(shared.KindInvalidAmount,
			"%d %s is not accepted for %s", req.Denomination, kind, svc.Type)
	}
	return d, nil
}
