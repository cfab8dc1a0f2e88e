package device

import (
	"context"
	"strings"

	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// StaticRateSource serves configured exchange rates
type StaticRateSource struct {
	rates map[shared.Currency]float64
}

var _ RateSource = (*StaticRateSource)(nil)

func NewStaticRateSource(rates map[string]float64) *StaticRateSource {
	src := &StaticRateSource{rates: make(map[shared.Currency]float64, len(rates))}
	for code, rate := range rates {
		src.rates[shared.Currency(strings.ToUpper(code))] = rate
	}
	return src
}

func (s *StaticRateSource) Rate(_ context.Context, currency shared.Currency) (float64, error) {
	if currency == shared.CurrencyPHP {
		return 1, nil
	}
	rate, ok := s.rates[currency]
	if !ok || rate <= 0 {
		return 0, shared.NewError(shared.KindUnsupportedConfiguration, "no exchange rate for %s", currency)
	}
	return rate, nil
}

// Rates returns a copy of every configured rate
func (s *StaticRateSource) Rates() map[shared.Currency]float64 {
	out := make(map[shared.Currency]float64, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out
}
