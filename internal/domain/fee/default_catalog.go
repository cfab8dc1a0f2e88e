package fee

import "github.com/kiosk-transaction-orchestrator/internal/domain/shared"

func bills(c shared.Currency, values ...int64) []shared.Denomination {
	out := make([]shared.Denomination, 0, len(values))
	for _, v := range values {
		out = append(out, shared.Bill(c, v))
	}
	return out
}

func coins(c shared.Currency, values ...int64) []shared.Denomination {
	out := make([]shared.Denomination, 0, len(values))
	for _, v := range values {
		out = append(out, shared.Coin(c, v))
	}
	return out
}

func concat(parts ...[]shared.Denomination) []shared.Denomination {
	var out []shared.Denomination
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var (
	phpBills = bills(shared.CurrencyPHP, 20, 50, 100, 200, 500, 1000)
	phpCoins = coins(shared.CurrencyPHP, 1, 5, 10, 20)
	phpCash  = concat(phpBills, phpCoins)
	usdBills = bills(shared.CurrencyUSD, 1, 5, 10, 20, 50, 100)
	eurBills = bills(shared.CurrencyEUR, 5, 10, 20, 50, 100, 200)

	billThenCoin = []shared.InsertKind{shared.KindBill, shared.KindCoin}
	coinThenBill = []shared.InsertKind{shared.KindCoin, shared.KindBill}
)

var eWalletAmounts = []int64{100, 200, 300, 500, 1000, 2000}

// DefaultCatalog returns the kiosk's service table
func DefaultCatalog() Catalog {
	c := Catalog{
		shared.ServiceBillToBill: {
			Category:         CategoryDomestic,
			Label:            "Bill to Bill",
			AmountOptions:    []int64{20, 50, 100, 200, 500, 1000},
			InsertCurrency:   shared.CurrencyPHP,
			InsertKinds:      billThenCoin,
			Accepted:         phpCash,
			DispenseCurrency: shared.CurrencyPHP,
			Dispensable:      bills(shared.CurrencyPHP, 20, 50, 100, 200, 500),
		},
		shared.ServiceBillToCoin: {
			Category:         CategoryDomestic,
			Label:            "Bill to Coin",
			AmountOptions:    []int64{20, 50, 100, 200},
			InsertCurrency:   shared.CurrencyPHP,
			InsertKinds:      billThenCoin,
			Accepted:         phpCash,
			DispenseCurrency: shared.CurrencyPHP,
			Dispensable:      phpCoins,
		},
		shared.ServiceCoinToBill: {
			Category:         CategoryDomestic,
			Label:            "Coin to Bill",
			AmountOptions:    []int64{20, 50, 100, 200},
			InsertCurrency:   shared.CurrencyPHP,
			InsertKinds:      coinThenBill,
			Accepted:         phpCash,
			DispenseCurrency: shared.CurrencyPHP,
			Dispensable:      bills(shared.CurrencyPHP, 20, 50, 100, 200),
		},
		shared.ServiceUSDToPHP: {
			Category:         CategoryForex,
			Label:            "USD to PHP",
			AmountOptions:    []int64{5, 10, 100},
			InsertCurrency:   shared.CurrencyUSD,
			InsertKinds:      []shared.InsertKind{shared.KindBill},
			Accepted:         usdBills,
			DispenseCurrency: shared.CurrencyPHP,
			Dispensable:      phpCash,
			ForeignCurrency:  shared.CurrencyUSD,
			Direction:        ForeignToLocal,
		},
		shared.ServiceEURToPHP: {
			Category:         CategoryForex,
			Label:            "EUR to PHP",
			AmountOptions:    []int64{5, 10, 20},
			InsertCurrency:   shared.CurrencyEUR,
			InsertKinds:      []shared.InsertKind{shared.KindBill},
			Accepted:         eurBills,
			DispenseCurrency: shared.CurrencyPHP,
			Dispensable:      phpCash,
			ForeignCurrency:  shared.CurrencyEUR,
			Direction:        ForeignToLocal,
		},
		shared.ServicePHPToUSD: {
			Category:         CategoryForex,
			Label:            "PHP to USD",
			AmountOptions:    []int64{5, 10, 100},
			InsertCurrency:   shared.CurrencyPHP,
			InsertKinds:      billThenCoin,
			Accepted:         phpCash,
			DispenseCurrency: shared.CurrencyUSD,
			Dispensable:      usdBills,
			ForeignCurrency:  shared.CurrencyUSD,
			Direction:        LocalToForeign,
		},
		shared.ServicePHPToEUR: {
			Category:         CategoryForex,
			Label:            "PHP to EUR",
			AmountOptions:    []int64{5, 10, 100},
			InsertCurrency:   shared.CurrencyPHP,
			InsertKinds:      billThenCoin,
			Accepted:         phpCash,
			DispenseCurrency: shared.CurrencyEUR,
			Dispensable:      eurBills,
			ForeignCurrency:  shared.CurrencyEUR,
			Direction:        LocalToForeign,
		},
	}

	for _, w := range []struct {
		in, out shared.ServiceType
		label   string
	}{
		{shared.ServiceGCashCashIn, shared.ServiceGCashCashOut, "GCash"},
		{shared.ServiceMayaCashIn, shared.ServiceMayaCashOut, "Maya"},
	} {
		c[w.in] = ServiceConfig{
			Category:         CategoryEWallet,
			Label:            w.label + " Cash In",
			AmountOptions:    eWalletAmounts,
			InsertCurrency:   shared.CurrencyPHP,
			InsertKinds:      billThenCoin,
			Accepted:         phpCash,
			DispenseCurrency: shared.CurrencyPHP,
		}
		c[w.out] = ServiceConfig{
			Category:         CategoryEWallet,
			Label:            w.label + " Cash Out",
			AmountOptions:    eWalletAmounts,
			InsertCurrency:   shared.CurrencyPHP,
			InsertKinds:      []shared.InsertKind{shared.KindEWallet},
			DispenseCurrency: shared.CurrencyPHP,
			Dispensable:      phpCash,
			CashOut:          true,
		}
	}

	for t, svc := range c {
		svc.Type = t
		c[t] = svc
	}
	return c
}
