package dispense

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

func php(values ...int64) []shared.Denomination {
	out := make([]shared.Denomination, 0, len(values))
	for _, v := range values {
		out = append(out, shared.Bill(shared.CurrencyPHP, v))
	}
	return out
}

func plenty(denoms []shared.Denomination) map[shared.Denomination]int {
	out := make(map[shared.Denomination]int, len(denoms))
	for _, d := range denoms {
		out[d] = 100
	}
	return out
}

func TestPlanDispense(t *testing.T) {
	bill := func(v int64) shared.Denomination { return shared.Bill(shared.CurrencyPHP, v) }
	coin := func(v int64) shared.Denomination { return shared.Coin(shared.CurrencyPHP, v) }

	tests := []struct {
		name      string
		amount    int64
		allowed   []shared.Denomination
		available map[shared.Denomination]int
		want      []PlanItem
		wantErr   error
	}{
		{
			name:      "greedy largest first",
			amount:    380,
			allowed:   php(20, 50, 100, 200, 500),
			available: plenty(php(20, 50, 100, 200, 500)),
			want: []PlanItem{
				{Denomination: bill(200), Count: 1},
				{Denomination: bill(100), Count: 1},
				{Denomination: bill(50), Count: 1},
				{Denomination: bill(20), Count: 1},
			},
		},
		{
			name:      "zero amount is an empty plan",
			amount:    0,
			allowed:   php(20),
			available: plenty(php(20)),
			want:      []PlanItem{},
		},
		{
			name:      "263 cannot be made from bills",
			amount:    263,
			allowed:   php(20, 50, 100, 200, 500),
			available: plenty(php(20, 50, 100, 200, 500)),
			wantErr:   shared.ErrUnsatisfiableDispenseAmount,
		},
		{
			name:      "backtracks when greedy strands a remainder",
			amount:    60,
			allowed:   php(20, 50),
			available: plenty(php(20, 50)),
			want:      []PlanItem{{Denomination: bill(20), Count: 3}},
		},
		{
			name:      "backtracks over a larger split",
			amount:    110,
			allowed:   php(20, 50),
			available: plenty(php(20, 50)),
			want: []PlanItem{
				{Denomination: bill(50), Count: 1},
				{Denomination: bill(20), Count: 3},
			},
		},
		{
			name:      "bounded by inventory",
			amount:    300,
			allowed:   php(100, 50),
			available: map[shared.Denomination]int{bill(100): 2, bill(50): 5},
			want: []PlanItem{
				{Denomination: bill(100), Count: 2},
				{Denomination: bill(50), Count: 2},
			},
		},
		{
			name:      "empty dispenser",
			amount:    100,
			allowed:   php(100),
			available: map[shared.Denomination]int{},
			wantErr:   shared.ErrUnsatisfiableDispenseAmount,
		},
		{
			name:      "bills before coins of the same value",
			amount:    45,
			allowed:   []shared.Denomination{coin(20), coin(5), bill(20)},
			available: map[shared.Denomination]int{coin(20): 10, coin(5): 10, bill(20): 1},
			want: []PlanItem{
				{Denomination: bill(20), Count: 1},
				{Denomination: coin(20), Count: 1},
				{Denomination: coin(5), Count: 1},
			},
		},
		{
			name:      "forex payout of 279 uses coins",
			amount:    279,
			allowed:   append(php(20, 50, 100, 200, 500, 1000), coin(1), coin(5), coin(10), coin(20)),
			available: plenty(append(php(20, 50, 100, 200, 500, 1000), coin(1), coin(5), coin(10), coin(20))),
			want: []PlanItem{
				{Denomination: bill(200), Count: 1},
				{Denomination: bill(50), Count: 1},
				{Denomination: bill(20), Count: 1},
				{Denomination: coin(5), Count: 1},
				{Denomination: coin(1), Count: 4},
			},
		},
		{
			name:      "negative amount",
			amount:    -20,
			allowed:   php(20),
			available: plenty(php(20)),
			wantErr:   shared.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanDispense(tt.amount, tt.allowed, tt.available)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, plan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan)
			assert.Equal(t, tt.amount, PlanTotal(plan))
		})
	}
}

func TestPlanDispense_NeverExceedsInventory(t *testing.T) {
	allowed := php(20, 50, 100, 200, 500)
	available := map[shared.Denomination]int{
		allowed[0]: 3, allowed[1]: 1, allowed[2]: 2, allowed[3]: 0, allowed[4]: 1,
	}

	for amount := int64(10); amount <= 1000; amount += 10 {
		plan, err := PlanDispense(amount, allowed, available)
		if err != nil {
			assert.ErrorIs(t, err, shared.ErrUnsatisfiableDispenseAmount)
			continue
		}
		assert.Equal(t, amount, PlanTotal(plan), "amount %d", amount)
		for _, item := range plan {
			assert.LessOrEqual(t, item.Count, available[item.Denomination])
		}
	}
}

func TestPlanUnits(t *testing.T) {
	plan := []PlanItem{
		{Denomination: shared.Bill(shared.CurrencyPHP, 100), Count: 2},
		{Denomination: shared.Coin(shared.CurrencyPHP, 5), Count: 3},
	}
	assert.Equal(t, 5, PlanUnits(plan))
	assert.Equal(t, int64(215), PlanTotal(plan))
}
