package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Table-valued settings are written as comma separated "key:value" pairs so
// they survive being passed through plain environment variables.

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitPairs(raw, setting string) ([][2]string, error) {
	var pairs [][2]string
	for _, part := range splitList(raw) {
		key, value, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%s: malformed entry %q", setting, part)
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(key), strings.TrimSpace(value)})
	}
	return pairs, nil
}

func parseFlatFees(raw string) (map[string]int64, error) {
	pairs, err := splitPairs(raw, "FEE_FLAT_TABLE")
	if err != nil {
		return nil, err
	}
	fees := make(map[string]int64, len(pairs))
	for _, p := range pairs {
		fee, err := strconv.ParseInt(p[1], 10, 64)
		if err != nil || fee < 0 {
			return nil, fmt.Errorf("FEE_FLAT_TABLE: invalid fee %q for %s", p[1], p[0])
		}
		fees[p[0]] = fee
	}
	return fees, nil
}

// parseFeeTiers reads "min-max:fee" entries and returns them sorted by Min.
func parseFeeTiers(raw string) ([]FeeTier, error) {
	pairs, err := splitPairs(raw, "FEE_EWALLET_TIERS")
	if err != nil {
		return nil, err
	}
	tiers := make([]FeeTier, 0, len(pairs))
	for _, p := range pairs {
		lo, hi, ok := strings.Cut(p[0], "-")
		if !ok {
			return nil, fmt.Errorf("FEE_EWALLET_TIERS: range %q must be min-max", p[0])
		}
		minAmount, errMin := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		maxAmount, errMax := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		fee, errFee := strconv.ParseInt(p[1], 10, 64)
		if errMin != nil || errMax != nil || errFee != nil || minAmount > maxAmount || fee < 0 {
			return nil, fmt.Errorf("FEE_EWALLET_TIERS: invalid tier %s:%s", p[0], p[1])
		}
		tiers = append(tiers, FeeTier{Min: minAmount, Max: maxAmount, Fee: fee})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Min < tiers[j].Min })
	return tiers, nil
}

func parseRates(raw string) (map[string]float64, error) {
	pairs, err := splitPairs(raw, "RATES")
	if err != nil {
		return nil, err
	}
	rates := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		rate, err := strconv.ParseFloat(p[1], 64)
		if err != nil {
			return nil, fmt.Errorf("RATES: invalid rate %q for %s", p[1], p[0])
		}
		rates[strings.ToUpper(p[0])] = rate
	}
	return rates, nil
}

func parseCounts(raw string) (map[string]int, error) {
	pairs, err := splitPairs(raw, "INVENTORY_INITIAL")
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(pairs))
	for _, p := range pairs {
		n, err := strconv.Atoi(p[1])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("INVENTORY_INITIAL: invalid count %q for %s", p[1], p[0])
		}
		counts[strings.ToUpper(p[0])] = n
	}
	return counts, nil
}
