package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

// Amounts is a reconciled USD/TL pair. Both values are finite and >= 0.
type Amounts struct {
	USD float64 `json:"usd"`
	TL  float64 `json:"tl"`
}

func (a *Amounts) add(b Amounts) {
	a.USD += b.USD
	a.TL += b.TL
}

// Reconcile resolves both currencies of an expense-like record. An explicit
// TL figure wins; otherwise TL is derived from USD with the stored rate.
// USD is never derived from TL.
func Reconcile(amountUSD, amountTL, exchangeRate *float64) Amounts {
	usd := nonNegative(amountUSD)
	tl := nonNegative(amountTL)
	if tl == 0 {
		rate := nonNegative(exchangeRate)
		if usd > 0 && rate > 0 {
			tl = usd * rate
		}
	}
	return Amounts{USD: usd, TL: tl}
}

// ImpliedRate backs a USD->TL rate out of a record's two totals. Zero when
// the USD side is not positive.
func ImpliedRate(totalTL, totalUSD float64) float64 {
	totalTL = finite(totalTL)
	totalUSD = finite(totalUSD)
	if totalUSD <= 0 {
		return 0
	}
	return totalTL / totalUSD
}

// PosNet removes the commission from a gross card amount and rounds the
// result to kuruş.
func PosNet(amount, commissionRate float64) float64 {
	amount = finite(amount)
	rate := finite(commissionRate)
	divisor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(rate).Div(decimal.NewFromInt(100)))
	if divisor.Sign() <= 0 {
		return 0
	}
	net, _ := decimal.NewFromFloat(amount).Div(divisor).Round(2).Float64()
	return net
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v *float64) float64 {
	if v == nil {
		return 0
	}
	f := finite(*v)
	if f < 0 {
		return 0
	}
	return f
}
