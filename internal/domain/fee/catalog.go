// Package fee holds the service catalog and the pure fee and conversion
// computation for every kiosk service.
package fee

import (
	"fmt"
	"strings"

	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// Category groups services that share a fee rule
type Category string

const (
	CategoryDomestic Category = "domestic"
	CategoryForex    Category = "forex"
	CategoryEWallet  Category = "ewallet"
)

// ForexDirection says which side of a forex service is the foreign currency
type ForexDirection string

const (
	ForeignToLocal ForexDirection = "foreign_to_local"
	LocalToForeign ForexDirection = "local_to_foreign"
)

// ServiceConfig describes what a service accepts and dispenses
type ServiceConfig struct {
	Type             shared.ServiceType
	Category         Category
	Label            string
	AmountOptions    []int64
	InsertCurrency   shared.Currency
	InsertKinds      []shared.InsertKind // primary first, then the top-up channel
	Accepted         []shared.Denomination
	DispenseCurrency shared.Currency
	Dispensable      []shared.Denomination
	ForeignCurrency  shared.Currency
	Direction        ForexDirection
	CashOut          bool
}

// PrimaryKind is the channel the service takes money through first
func (s ServiceConfig) PrimaryKind() shared.InsertKind {
	return s.InsertKinds[0]
}

// SecondaryKind is the top-up channel, if the service has one
func (s ServiceConfig) SecondaryKind() (shared.InsertKind, bool) {
	if len(s.InsertKinds) < 2 {
		return "", false
	}
	return s.InsertKinds[1], true
}

// AllowsAmount reports whether amount is one of the selectable options
func (s ServiceConfig) AllowsAmount(amount int64) bool {
	for _, a := range s.AmountOptions {
		if a == amount {
			return true
		}
	}
	return false
}

// Accepts reports whether d may be inserted for this service. E-wallet
// credits carry an arbitrary positive value.
func (s ServiceConfig) Accepts(d shared.Denomination) bool {
	if d.Currency != s.InsertCurrency || d.Value <= 0 {
		return false
	}
	if d.Kind == shared.KindEWallet {
		return s.hasKind(shared.KindEWallet)
	}
	for _, a := range s.Accepted {
		if a == d {
			return true
		}
	}
	return false
}

func (s ServiceConfig) hasKind(kind shared.InsertKind) bool {
	for _, k := range s.InsertKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// AcceptedValues lists insertable face values of kind
func (s ServiceConfig) AcceptedValues(kind shared.InsertKind) []int64 {
	var values []int64
	for _, d := range s.Accepted {
		if d.Kind == kind {
			values = append(values, d.Value)
		}
	}
	return values
}

// ResolveDispense maps the face values a customer picked to dispensable
// denominations. An empty selection means everything the service dispenses.
func (s ServiceConfig) ResolveDispense(values []int64) ([]shared.Denomination, error) {
	if len(values) == 0 {
		out := append([]shared.Denomination(nil), s.Dispensable...)
		shared.SortDenominations(out)
		return out, nil
	}

	var out []shared.Denomination
	seen := make(map[shared.Denomination]bool)
	for _, v := range values {
		matched := false
		for _, d := range s.Dispensable {
			if d.Value == v {
				matched = true
				if !seen[d] {
					seen[d] = true
					out = append(out, d)
				}
			}
		}
		if !matched {
			return nil, shared.NewError(shared.KindUnsupportedConfiguration,
				"%s does not dispense %d %s", s.Type, v, s.DispenseCurrency)
		}
	}
	shared.SortDenominations(out)
	return out, nil
}

// Catalog is the explicit lookup table from service type to its configuration
type Catalog map[shared.ServiceType]ServiceConfig

// Lookup resolves a service type, failing with InvalidServiceType
func (c Catalog) Lookup(t shared.ServiceType) (ServiceConfig, error) {
	svc, ok := c[t]
	if !ok {
		return ServiceConfig{}, shared.NewError(shared.KindInvalidServiceType, "unknown service type %q", t)
	}
	return svc, nil
}

// Validate checks that every service type has a complete, consistent entry
func (c Catalog) Validate() error {
	var problems []string
	for _, t := range shared.AllServiceTypes() {
		svc, ok := c[t]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: missing", t))
			continue
		}
		problems = append(problems, svc.problems()...)
	}
	for t := range c {
		if _, ok := shared.ParseServiceType(string(t)); !ok {
			problems = append(problems, fmt.Sprintf("%s: not a known service type", t))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("service catalog invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (s ServiceConfig) problems() []string {
	var p []string
	add := func(format string, args ...any) {
		p = append(p, fmt.Sprintf("%s: ", s.Type)+fmt.Sprintf(format, args...))
	}
	if len(s.AmountOptions) == 0 {
		add("no amount options")
	}
	for _, a := range s.AmountOptions {
		if a <= 0 {
			add("non-positive amount option %d", a)
		}
	}
	if len(s.InsertKinds) == 0 {
		add("no insert kinds")
	}
	for _, d := range s.Accepted {
		if d.Currency != s.InsertCurrency {
			add("accepted %s is not %s", d, s.InsertCurrency)
		}
	}
	for _, k := range s.InsertKinds {
		if k != shared.KindEWallet && len(s.AcceptedValues(k)) == 0 {
			add("no accepted %s denominations", k)
		}
	}
	for _, d := range s.Dispensable {
		if d.Currency != s.DispenseCurrency {
			add("dispensable %s is not %s", d, s.DispenseCurrency)
		}
	}
	switch s.Category {
	case CategoryDomestic:
		if len(s.Dispensable) == 0 {
			add("domestic service dispenses nothing")
		}
	case CategoryForex:
		if s.ForeignCurrency == "" || s.Direction == "" {
			add("forex service needs a foreign currency and direction")
		}
		if len(s.Dispensable) == 0 {
			add("forex service dispenses nothing")
		}
	case CategoryEWallet:
		if s.CashOut && len(s.Dispensable) == 0 {
			add("cash-out service dispenses nothing")
		}
	default:
		add("unknown category %q", s.Category)
	}
	return p
}
