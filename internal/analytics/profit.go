package analytics

import "lfpanel/backend/internal/domain"

type Profit struct {
	USD float64 `json:"profit_usd"`
	TL  float64 `json:"profit_tl"`
}

// ComputeProfit derives the stored profit fields of a sale.
//
// FeesCredits is assumed to include the tax the platform reported, so the
// real fee expense is FeesCredits - Tax. A sale whose fees exclude tax would
// have its fee expense overstated by this formula.
//
// When BuyerPaid is zero the implied rate is zero and so is the TL profit,
// whatever the USD profit is.
func ComputeProfit(s domain.Sale) Profit {
	buyerPaid := finite(s.BuyerPaid)
	tax := finite(s.Tax)

	netRevenue := buyerPaid - tax
	actualFees := finite(s.FeesCredits) - tax
	usd := netRevenue - actualFees - finite(s.ProductCost) - finite(s.ShippingCost)

	return Profit{
		USD: usd,
		TL:  usd * ImpliedRate(s.TotalSalePriceTL, buyerPaid),
	}
}

// feesTL converts the platform fee of a sale with its implied rate.
func feesTL(s domain.Sale) float64 {
	return finite(s.FeesCredits) * ImpliedRate(s.TotalSalePriceTL, s.BuyerPaid)
}
