package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"lfpanel/backend/internal/domain"
)

const (
	UnknownProduct = "Unknown Product"
	NoDiscount     = "No Discount"
)

var breakdownPalette = []string{
	"#6366f1", "#f59e0b", "#10b981", "#ef4444",
	"#8b5cf6", "#06b6d4", "#f97316", "#84cc16",
}

// EtsyInput is the snapshot one storefront report is computed from.
type EtsyInput struct {
	Sales    []domain.Sale
	Expenses []domain.Expense
	Range    domain.DateRange
	Locale   string
}

type EtsyKPIs struct {
	TotalSalesCount      int     `json:"total_sales_count"`
	OrderCount           int     `json:"order_count"`
	TotalSalesRevenueUSD float64 `json:"total_sales_revenue_usd"`
	TotalSalesRevenueTL  float64 `json:"total_sales_revenue_tl"`
	AverageOrderUSD      float64 `json:"average_order_usd"`
	TotalProfitUSD       float64 `json:"total_profit_usd"`
	GrossProfitTL        float64 `json:"gross_profit_tl"`
	TotalProfitTL        float64 `json:"total_profit_tl"`
	TotalFeesUSD         float64 `json:"total_fees_usd"`
	TotalFeesTL          float64 `json:"total_fees_tl"`
	TotalProductCost     float64 `json:"total_product_cost"`
	TotalShippingCost    float64 `json:"total_shipping_cost"`
	ShipEntegra          Amounts `json:"shipentegra"`
	Prinwork             Amounts `json:"prinwork"`
	Rexven               Amounts `json:"rexven"`
	EtsyAds              Amounts `json:"etsy_ads"`
	EtsyPlus             Amounts `json:"etsy_plus"`
	ListingFees          Amounts `json:"listing_fees"`
	CloudFix             Amounts `json:"cloudfix"`
	OtherExpenses        Amounts `json:"other_expenses"`
	TotalExpenses        Amounts `json:"total_expenses"`
	TotalCost            float64 `json:"total_cost"`
}

func (k *EtsyKPIs) tagTotal(tag ExpenseTag) *Amounts {
	switch tag {
	case TagShipEntegra:
		return &k.ShipEntegra
	case TagPrinwork:
		return &k.Prinwork
	case TagRexven:
		return &k.Rexven
	case TagEtsyAds:
		return &k.EtsyAds
	case TagEtsyPlus:
		return &k.EtsyPlus
	case TagListingFee:
		return &k.ListingFees
	case TagCloudFix:
		return &k.CloudFix
	default:
		return &k.OtherExpenses
	}
}

type TrendPoint struct {
	Key            string  `json:"key"`
	Label          string  `json:"label"`
	RevenueUSD     float64 `json:"revenue_usd"`
	GrossProfitUSD float64 `json:"gross_profit_usd"`
	ExpenseUSD     float64 `json:"expense_usd"`
	ProfitUSD      float64 `json:"profit_usd"`
}

type BreakdownSlice struct {
	Category string  `json:"category"`
	ValueUSD float64 `json:"value_usd"`
	ValueTL  float64 `json:"value_tl"`
	Color    string  `json:"color"`
}

type DiscountRow struct {
	Label      string  `json:"label"`
	RevenueUSD float64 `json:"revenue_usd"`
	ProfitUSD  float64 `json:"profit_usd"`
	Count      int     `json:"count"`
}

type MonthlyRow struct {
	Month          string  `json:"month"`
	Label          string  `json:"label"`
	SalesCount     int     `json:"sales_count"`
	RevenueUSD     float64 `json:"revenue_usd"`
	RevenueTL      float64 `json:"revenue_tl"`
	CostUSD        float64 `json:"cost_usd"`
	GrossProfitUSD float64 `json:"gross_profit_usd"`
	GrossProfitTL  float64 `json:"gross_profit_tl"`
	ExpenseUSD     float64 `json:"expense_usd"`
	ExpenseTL      float64 `json:"expense_tl"`
	EtsyAdsUSD     float64 `json:"etsy_ads_usd"`
	ProfitUSD      float64 `json:"profit_usd"`
	ProfitTL       float64 `json:"profit_tl"`
}

type ProductRow struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	RevenueUSD float64 `json:"revenue_usd"`
	ProfitUSD  float64 `json:"profit_usd"`
	ProfitTL   float64 `json:"profit_tl"`
}

type EtsyReport struct {
	Range             domain.DateRange `json:"range"`
	Granularity       string           `json:"granularity"`
	Locale            string           `json:"locale"`
	KPIs              EtsyKPIs         `json:"kpis"`
	Trend             []TrendPoint     `json:"trend"`
	ExpenseBreakdown  []BreakdownSlice `json:"expense_breakdown"`
	DiscountBreakdown []DiscountRow    `json:"discount_breakdown"`
	Monthly           []MonthlyRow     `json:"monthly"`
	Products          []ProductRow     `json:"products"`
}

// BuildEtsyReport reduces a storefront snapshot into its report. Records
// outside in.Range are ignored. It never fails: bad numeric fields count as
// zero and missing relations fall back to placeholder names.
func BuildEtsyReport(in EtsyInput) EtsyReport {
	labeler := NewLabeler(in.Locale)
	granularity := GranularityFor(in.Range)

	sales := make([]domain.Sale, 0, len(in.Sales))
	for _, s := range in.Sales {
		if in.Range.Contains(s.Date) {
			sales = append(sales, s)
		}
	}
	expenses := make([]domain.Expense, 0, len(in.Expenses))
	for _, e := range in.Expenses {
		if in.Range.Contains(e.Date) {
			expenses = append(expenses, e)
		}
	}

	return EtsyReport{
		Range:             in.Range,
		Granularity:       granularity.String(),
		Locale:            labeler.Locale(),
		KPIs:              etsyKPIs(sales, expenses),
		Trend:             etsyTrend(sales, expenses, granularity, labeler),
		ExpenseBreakdown:  expenseBreakdown(expenses, labeler),
		DiscountBreakdown: discountBreakdown(sales),
		Monthly:           monthlyTable(sales, expenses, labeler),
		Products:          productTable(sales),
	}
}

func saleQuantity(s domain.Sale) int {
	if s.Quantity <= 0 {
		return 1
	}
	return s.Quantity
}

func etsyKPIs(sales []domain.Sale, expenses []domain.Expense) EtsyKPIs {
	var k EtsyKPIs
	var grossProfitTL float64
	for _, s := range sales {
		k.TotalSalesCount += saleQuantity(s)
		k.OrderCount++
		k.TotalSalesRevenueUSD += finite(s.BuyerPaid)
		k.TotalSalesRevenueTL += finite(s.TotalSalePriceTL)
		k.TotalProfitUSD += finite(s.ProfitUSD)
		grossProfitTL += finite(s.ProfitTL)
		k.TotalFeesUSD += finite(s.FeesCredits) - finite(s.Tax)
		k.TotalFeesTL += feesTL(s)
		k.TotalProductCost += finite(s.ProductCost)
		k.TotalShippingCost += finite(s.ShippingCost)
	}
	if k.OrderCount > 0 {
		k.AverageOrderUSD = k.TotalSalesRevenueUSD / float64(k.OrderCount)
	}

	for _, e := range expenses {
		amounts := Reconcile(e.AmountUSD, e.AmountTL, e.ExchangeRate)
		k.tagTotal(Classify(e.Category).Tag).add(amounts)
		k.TotalExpenses.add(amounts)
	}

	k.GrossProfitTL = grossProfitTL
	// Ads spend is the only expense netted out of the TL profit figure.
	k.TotalProfitTL = grossProfitTL - k.EtsyAds.TL
	k.TotalCost = k.TotalProductCost + k.TotalShippingCost + k.TotalFeesUSD + k.TotalExpenses.USD
	return k
}

func etsyTrend(sales []domain.Sale, expenses []domain.Expense, g Granularity, labeler Labeler) []TrendPoint {
	byKey := map[string]*TrendPoint{}
	bucket := func(local string, label string) *TrendPoint {
		point, ok := byKey[local]
		if !ok {
			point = &TrendPoint{Key: local, Label: label}
			byKey[local] = point
		}
		return point
	}

	for _, s := range sales {
		local := ToLocalDay(s.Date)
		point := bucket(bucketKey(local, g), labeler.Label(local, g))
		point.RevenueUSD += finite(s.BuyerPaid)
		point.GrossProfitUSD += finite(s.ProfitUSD)
	}
	for _, e := range expenses {
		if Classify(e.Category).External {
			continue
		}
		local := ToLocalDay(e.Date)
		point := bucket(bucketKey(local, g), labeler.Label(local, g))
		point.ExpenseUSD += Reconcile(e.AmountUSD, e.AmountTL, e.ExchangeRate).USD
	}

	points := make([]TrendPoint, 0, len(byKey))
	for _, point := range byKey {
		point.ProfitUSD = point.GrossProfitUSD - point.ExpenseUSD
		points = append(points, *point)
	}
	slices.SortFunc(points, func(a, b TrendPoint) int {
		return strings.Compare(a.Key, b.Key)
	})
	return points
}

// expenseBreakdown groups non-external expenses by raw category, largest
// first. Colours are handed out in first-seen order before sorting, so a
// category keeps its colour no matter where it ranks.
func expenseBreakdown(expenses []domain.Expense, labeler Labeler) []BreakdownSlice {
	byCategory := map[string]int{}
	slicesOut := make([]BreakdownSlice, 0)
	for _, e := range expenses {
		if Classify(e.Category).External {
			continue
		}
		category := strings.TrimSpace(e.Category)
		if category == "" {
			category = labeler.otherCategory()
		}
		idx, ok := byCategory[category]
		if !ok {
			idx = len(slicesOut)
			byCategory[category] = idx
			slicesOut = append(slicesOut, BreakdownSlice{
				Category: category,
				Color:    breakdownPalette[idx%len(breakdownPalette)],
			})
		}
		amounts := Reconcile(e.AmountUSD, e.AmountTL, e.ExchangeRate)
		slicesOut[idx].ValueUSD += amounts.USD
		slicesOut[idx].ValueTL += amounts.TL
	}

	slices.SortStableFunc(slicesOut, func(a, b BreakdownSlice) int {
		return cmp.Compare(b.ValueUSD, a.ValueUSD)
	})
	return slicesOut
}

func discountLabel(rate *int) string {
	if rate == nil || *rate == 0 {
		return NoDiscount
	}
	return fmt.Sprintf("%%%d", *rate)
}

func discountBreakdown(sales []domain.Sale) []DiscountRow {
	byLabel := map[string]*DiscountRow{}
	for _, s := range sales {
		label := discountLabel(s.DiscountRate)
		row, ok := byLabel[label]
		if !ok {
			row = &DiscountRow{Label: label}
			byLabel[label] = row
		}
		row.RevenueUSD += finite(s.BuyerPaid)
		row.ProfitUSD += finite(s.ProfitUSD)
		row.Count++
	}

	rows := make([]DiscountRow, 0, len(byLabel))
	for _, row := range byLabel {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b DiscountRow) int {
		if c := cmp.Compare(b.RevenueUSD, a.RevenueUSD); c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})
	return rows
}

func monthlyTable(sales []domain.Sale, expenses []domain.Expense, labeler Labeler) []MonthlyRow {
	byMonth := map[string]*MonthlyRow{}
	month := func(local string, label string) *MonthlyRow {
		row, ok := byMonth[local]
		if !ok {
			row = &MonthlyRow{Month: local, Label: label}
			byMonth[local] = row
		}
		return row
	}

	for _, s := range sales {
		local := ToLocalDay(s.Date)
		row := month(MonthKey(local), labeler.Label(local, Month))
		row.SalesCount += saleQuantity(s)
		row.RevenueUSD += finite(s.BuyerPaid)
		row.RevenueTL += finite(s.TotalSalePriceTL)
		row.CostUSD += finite(s.ProductCost) + finite(s.ShippingCost) + finite(s.FeesCredits)
		row.GrossProfitUSD += finite(s.ProfitUSD)
		row.GrossProfitTL += finite(s.ProfitTL)
	}
	for _, e := range expenses {
		class := Classify(e.Category)
		if class.External {
			continue
		}
		local := ToLocalDay(e.Date)
		row := month(MonthKey(local), labeler.Label(local, Month))
		amounts := Reconcile(e.AmountUSD, e.AmountTL, e.ExchangeRate)
		row.ExpenseUSD += amounts.USD
		row.ExpenseTL += amounts.TL
		if class.Tag == TagEtsyAds {
			row.EtsyAdsUSD += amounts.USD
		}
	}

	rows := make([]MonthlyRow, 0, len(byMonth))
	for _, row := range byMonth {
		row.ProfitUSD = row.GrossProfitUSD - row.ExpenseUSD
		row.ProfitTL = row.GrossProfitTL - row.ExpenseTL
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b MonthlyRow) int {
		return strings.Compare(b.Month, a.Month)
	})
	return rows
}

func productTable(sales []domain.Sale) []ProductRow {
	byName := map[string]*ProductRow{}
	for _, s := range sales {
		name := strings.TrimSpace(s.ProductName)
		if name == "" {
			name = UnknownProduct
		}
		row, ok := byName[name]
		if !ok {
			row = &ProductRow{Name: name}
			byName[name] = row
		}
		row.Quantity += saleQuantity(s)
		row.RevenueUSD += finite(s.BuyerPaid)
		row.ProfitUSD += finite(s.ProfitUSD)
		row.ProfitTL += finite(s.ProfitTL)
	}

	rows := make([]ProductRow, 0, len(byName))
	for _, row := range byName {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b ProductRow) int {
		if c := cmp.Compare(b.ProfitUSD, a.ProfitUSD); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return rows
}
