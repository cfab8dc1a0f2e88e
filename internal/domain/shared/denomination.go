package shared

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Denomination is a fixed face value of a currency delivered through one channel
type Denomination struct {
	Currency Currency   `json:"currency" bson:"currency"`
	Kind     InsertKind `json:"kind" bson:"kind"`
	Value    int64      `json:"value" bson:"value"`
}

// Bill is a shorthand constructor for a bill denomination
func Bill(currency Currency, value int64) Denomination {
	return Denomination{Currency: currency, Kind: KindBill, Value: value}
}

// Coin is a shorthand constructor for a coin denomination
func Coin(currency Currency, value int64) Denomination {
	return Denomination{Currency: currency, Kind: KindCoin, Value: value}
}

// Key renders the denomination as CUR_KIND_VALUE, e.g. PHP_BILL_100
func (d Denomination) Key() string {
	return fmt.Sprintf("%s_%s_%d", d.Currency, strings.ToUpper(string(d.Kind)), d.Value)
}

func (d Denomination) String() string {
	return d.Key()
}

// ParseDenominationKey is the inverse of Key
func ParseDenominationKey(key string) (Denomination, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(key)), "_")
	if len(parts) != 3 {
		return Denomination{}, fmt.Errorf("malformed denomination key %q", key)
	}
	kind, ok := ParseInsertKind(strings.ToLower(parts[1]))
	if !ok {
		return Denomination{}, fmt.Errorf("unknown denomination kind in %q", key)
	}
	value, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || value <= 0 {
		return Denomination{}, fmt.Errorf("invalid denomination value in %q", key)
	}
	return Denomination{Currency: Currency(parts[0]), Kind: kind, Value: value}, nil
}

// SortDenominations orders by value descending, bills ahead of coins of the
// same value and then by currency. This is the order the dispenser works through a plan.
func SortDenominations(denoms []Denomination) {
	sort.SliceStable(denoms, func(i, j int) bool {
		a, b := denoms[i], denoms[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if a.Kind != b.Kind {
			return a.Kind == KindBill
		}
		return a.Currency < b.Currency
	})
}
