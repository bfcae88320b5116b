package analytics

import (
	"math"
	"testing"
	"time"

	"lfpanel/backend/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func localDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed.Add(-LocalOffset)
}

func localRange(t *testing.T, from, to string) domain.DateRange {
	t.Helper()
	return domain.DateRange{
		From: localDate(t, from+" 00:00"),
		To:   localDate(t, to+" 00:00").Add(24*time.Hour - time.Nanosecond),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestReconcile(t *testing.T) {
	cases := []struct {
		name    string
		usd, tl *float64
		rate    *float64
		want    Amounts
	}{
		{name: "explicit tl wins", usd: ptr(10.0), tl: ptr(400.0), rate: ptr(35.0), want: Amounts{USD: 10, TL: 400}},
		{name: "tl derived from usd and rate", usd: ptr(10.0), rate: ptr(35.0), want: Amounts{USD: 10, TL: 350}},
		{name: "usd without rate", usd: ptr(10.0), want: Amounts{USD: 10, TL: 0}},
		{name: "tl only keeps usd zero", tl: ptr(500.0), rate: ptr(35.0), want: Amounts{USD: 0, TL: 500}},
		{name: "negative coerced", usd: ptr(-5.0), tl: ptr(-20.0), rate: ptr(30.0), want: Amounts{}},
		{name: "nan coerced", usd: ptr(math.NaN()), tl: ptr(math.Inf(1)), want: Amounts{}},
		{name: "all missing", want: Amounts{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Reconcile(tc.usd, tc.tl, tc.rate)
			if !almostEqual(got.USD, tc.want.USD) || !almostEqual(got.TL, tc.want.TL) {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
			if got.USD < 0 || got.TL < 0 {
				t.Fatalf("expected non-negative amounts, got %+v", got)
			}
		})
	}
}

func TestImpliedRateGuardsZero(t *testing.T) {
	if rate := ImpliedRate(1000, 0); rate != 0 {
		t.Fatalf("expected zero rate, got %v", rate)
	}
	if rate := ImpliedRate(3500, 100); !almostEqual(rate, 35) {
		t.Fatalf("expected 35, got %v", rate)
	}
}

func TestPosNetRoundsToKurus(t *testing.T) {
	if net := PosNet(1000, 2.5); net != 975.61 {
		t.Fatalf("expected 975.61, got %v", net)
	}
	if net := PosNet(500, 0); net != 500 {
		t.Fatalf("expected 500 without commission, got %v", net)
	}
}

func TestComputeProfit(t *testing.T) {
	sale := domain.Sale{
		BuyerPaid:        100,
		FeesCredits:      15,
		Tax:              5,
		TotalSalePriceTL: 3500,
		ProductCost:      20,
		ShippingCost:     10,
	}
	got := ComputeProfit(sale)
	// net revenue 95, actual fees 10, 95-10-20-10 = 55
	if !almostEqual(got.USD, 55) {
		t.Fatalf("expected profit usd 55, got %v", got.USD)
	}
	if !almostEqual(got.TL, 55*35) {
		t.Fatalf("expected profit tl %v, got %v", 55*35.0, got.TL)
	}
}

func TestComputeProfitZeroBuyerPaidHasNoTLProfit(t *testing.T) {
	got := ComputeProfit(domain.Sale{BuyerPaid: 0, TotalSalePriceTL: 900, ProductCost: 12})
	if got.USD == 0 {
		t.Fatalf("expected non-zero usd profit")
	}
	if got.TL != 0 {
		t.Fatalf("expected zero tl profit, got %v", got.TL)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		category string
		tag      ExpenseTag
		external bool
	}{
		{"shipentegra kargo", TagShipEntegra, true},
		{"PRINWORK baskı", TagPrinwork, true},
		{"Rexven danışmanlık", TagRexven, true},
		{"Etsy Ads March", TagEtsyAds, false},
		{"etsy plus subscription", TagEtsyPlus, false},
		{"Listing Fees", TagListingFee, false},
		{"cloudfix", TagCloudFix, false},
		{"Ofis kirası", TagNone, false},
		{"", TagNone, false},
	}
	for _, tc := range cases {
		got := Classify(tc.category)
		if got.Tag != tc.tag || got.External != tc.external {
			t.Fatalf("classify %q: expected %s/%v, got %s/%v", tc.category, tc.tag, tc.external, got.Tag, got.External)
		}
	}
}

func TestClassifyUsesKeywordOrder(t *testing.T) {
	got := Classify("ShipEntegra etsy ads refund")
	if got.Tag != TagShipEntegra {
		t.Fatalf("expected first keyword to win, got %s", got.Tag)
	}
}

func TestGranularityBoundary(t *testing.T) {
	if g := GranularityFor(localRange(t, "2024-01-01", "2024-03-01")); g != Day {
		t.Fatalf("expected day buckets for a 60 day span, got %s", g)
	}
	if g := GranularityFor(localRange(t, "2024-01-01", "2024-03-02")); g != Month {
		t.Fatalf("expected month buckets for a 61 day span, got %s", g)
	}
}

func TestToLocalDayCrossesMidnight(t *testing.T) {
	instant := time.Date(2024, 5, 31, 22, 30, 0, 0, time.UTC)
	local := ToLocalDay(instant)
	if DayKey(local) != "2024-06-01" {
		t.Fatalf("expected shifted day 2024-06-01, got %s", DayKey(local))
	}
	if MonthKey(local) != "2024-06" {
		t.Fatalf("expected month 2024-06, got %s", MonthKey(local))
	}
}

func TestLabeler(t *testing.T) {
	local := time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)
	tr := NewLabeler(LocaleTR)
	if got := tr.Label(local, Day); got != "5 Ağu" {
		t.Fatalf("unexpected tr day label %q", got)
	}
	if got := tr.Label(local, Month); got != "Ağu 2024" {
		t.Fatalf("unexpected tr month label %q", got)
	}
	if got := NewLabeler(LocaleEN).Label(local, Month); got != "Aug 2024" {
		t.Fatalf("unexpected en month label %q", got)
	}
}

func TestResolveLocale(t *testing.T) {
	cases := []struct {
		fallback string
		prefs    []string
		want     string
	}{
		{fallback: LocaleTR, want: LocaleTR},
		{fallback: LocaleEN, prefs: []string{""}, want: LocaleEN},
		{fallback: LocaleTR, prefs: []string{"en-US,en;q=0.9"}, want: LocaleEN},
		{fallback: LocaleEN, prefs: []string{"tr-TR"}, want: LocaleTR},
		{fallback: LocaleEN, prefs: []string{"", "tr"}, want: LocaleTR},
	}
	for _, tc := range cases {
		if got := ResolveLocale(tc.fallback, tc.prefs...); got != tc.want {
			t.Fatalf("ResolveLocale(%q, %v) = %q, want %q", tc.fallback, tc.prefs, got, tc.want)
		}
	}
}

func TestPercentChange(t *testing.T) {
	cases := []struct {
		current, previous float64
		value             float64
		label             string
	}{
		{current: 1000, previous: 0, value: 100, label: "+100%"},
		{current: 0, previous: 0, value: 0, label: "0%"},
		{current: 150, previous: 100, value: 50, label: "+50%"},
		{current: 80, previous: 120, value: -33.3, label: "-33.3%"},
	}
	for _, tc := range cases {
		value, label := PercentChange(tc.current, tc.previous)
		if !almostEqual(value, tc.value) || label != tc.label {
			t.Fatalf("PercentChange(%v, %v) = %v %q, want %v %q", tc.current, tc.previous, value, label, tc.value, tc.label)
		}
	}
}
