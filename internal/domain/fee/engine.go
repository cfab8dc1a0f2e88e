package fee

import (
	"math"

	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// ceilEpsilon keeps float noise such as 5876.000000001 from rounding up a whole unit
const ceilEpsilon = 1e-9

// Quote is the outcome of pricing one transaction
type Quote struct {
	Fee              int64   `json:"fee"`
	TotalDue         int64   `json:"total_due"`
	AmountToDispense int64   `json:"amount_to_dispense"`
	ConvertedAmount  int64   `json:"converted_amount,omitempty"`
	TransferAmount   int64   `json:"transfer_amount,omitempty"`
	ExchangeRate     float64 `json:"exchange_rate,omitempty"`
}

// ComputeConversion prices amount for svc. rate is the PHP value of one unit
// of the service's foreign currency and is ignored for non-forex services.
func ComputeConversion(amount int64, svc ServiceConfig, rate float64, policy Policy) (Quote, error) {
	if amount <= 0 {
		return Quote{}, shared.NewError(shared.KindInvalidAmount, "amount must be positive, got %d", amount)
	}

	switch svc.Category {
	case CategoryDomestic:
		return domestic(amount, svc, policy)
	case CategoryEWallet:
		return eWallet(amount, svc, policy), nil
	case CategoryForex:
		return forex(amount, svc, rate, policy)
	}
	return Quote{}, shared.NewError(shared.KindUnsupportedConfiguration,
		"service %s has unknown category %q", svc.Type, svc.Category)
}

func domestic(amount int64, svc ServiceConfig, policy Policy) (Quote, error) {
	flat, ok := policy.Flat[svc.Type]
	if !ok {
		return Quote{}, shared.NewError(shared.KindUnsupportedConfiguration, "no flat fee for %s", svc.Type)
	}

	if policy.Mode == ModeDeducted {
		if flat >= amount {
			return Quote{}, shared.NewError(shared.KindInvalidAmount,
				"amount %d does not cover the %d fee", amount, flat)
		}
		return Quote{Fee: flat, TotalDue: amount, AmountToDispense: amount - flat}, nil
	}
	return Quote{Fee: flat, TotalDue: amount + flat, AmountToDispense: amount}, nil
}

func eWallet(amount int64, svc ServiceConfig, policy Policy) Quote {
	fee := policy.TierFee(amount)
	q := Quote{
		Fee:            fee,
		TotalDue:       amount,
		TransferAmount: amount - fee,
	}
	if svc.CashOut {
		q.AmountToDispense = q.TransferAmount
	}
	return q
}

func forex(amount int64, svc ServiceConfig, rate float64, policy Policy) (Quote, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return Quote{}, shared.NewError(shared.KindUnsupportedConfiguration,
			"no usable rate for %s", svc.ForeignCurrency)
	}

	exact := float64(amount) * rate
	switch svc.Direction {
	case ForeignToLocal:
		converted := int64(math.Round(exact))
		fee := int64(math.Round(float64(converted) * policy.ForexPercent / 100))
		return Quote{
			Fee:              fee,
			TotalDue:         amount,
			AmountToDispense: converted - fee,
			ConvertedAmount:  converted,
			ExchangeRate:     rate,
		}, nil
	case LocalToForeign:
		localNeeded := int64(math.Ceil(exact - ceilEpsilon))
		fee := int64(math.Round(float64(localNeeded) * policy.ForexPercent / 100))
		return Quote{
			Fee:              fee,
			TotalDue:         localNeeded + fee,
			AmountToDispense: amount,
			ConvertedAmount:  localNeeded,
			ExchangeRate:     rate,
		}, nil
	}
	return Quote{}, shared.NewError(shared.KindUnsupportedConfiguration,
		"service %s has no forex direction", svc.Type)
}
