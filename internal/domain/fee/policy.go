package fee

import (
	"fmt"

	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// Mode decides whether a flat fee is charged on top of the amount or taken out of it
type Mode string

const (
	ModeAdded    Mode = "added"
	ModeDeducted Mode = "deducted"
)

// Tier maps the inclusive range [Min, Max] to a flat fee
type Tier struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
	Fee int64 `json:"fee"`
}

// Policy is the configurable part of fee computation
type Policy struct {
	Flat         map[shared.ServiceType]int64 `json:"flat"`
	Tiers        []Tier                       `json:"ewallet_tiers"`
	ForexPercent float64                      `json:"forex_percent"`
	Mode         Mode                         `json:"mode"`
}

// TierFee returns the e-wallet fee for amount. Amounts above the top tier pay
// the top fee, amounts below the first tier pay nothing.
func (p Policy) TierFee(amount int64) int64 {
	if len(p.Tiers) == 0 || amount < p.Tiers[0].Min {
		return 0
	}
	for _, t := range p.Tiers {
		if amount >= t.Min && amount <= t.Max {
			return t.Fee
		}
	}
	return p.Tiers[len(p.Tiers)-1].Fee
}

// Validate checks the policy covers every domestic service in the catalog
func (p Policy) Validate(c Catalog) error {
	if p.Mode != ModeAdded && p.Mode != ModeDeducted {
		return fmt.Errorf("fee mode %q is not one of added, deducted", p.Mode)
	}
	if p.ForexPercent < 0 || p.ForexPercent >= 100 {
		return fmt.Errorf("forex percent %v out of range", p.ForexPercent)
	}
	for i := 1; i < len(p.Tiers); i++ {
		if p.Tiers[i].Min != p.Tiers[i-1].Max+1 {
			return fmt.Errorf("e-wallet tiers are not contiguous at %d", p.Tiers[i].Min)
		}
	}
	for t, svc := range c {
		if svc.Category != CategoryDomestic {
			continue
		}
		if _, ok := p.Flat[t]; !ok {
			return fmt.Errorf("no flat fee configured for %s", t)
		}
	}
	return nil
}
