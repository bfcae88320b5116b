package analytics

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lfpanel/backend/internal/domain"
)

// LamiaInput is the POS and cash snapshot of the current window plus the
// same window one year earlier.
type LamiaInput struct {
	Pos          []domain.PosTransaction
	Cash         []domain.CashTransaction
	PreviousPos  []domain.PosTransaction
	PreviousCash []domain.CashTransaction
	Range        domain.DateRange
	Locale       string
}

type LamiaKPIs struct {
	PosGross         float64 `json:"pos_gross"`
	PosNet           float64 `json:"pos_net"`
	Commission       float64 `json:"commission"`
	Cash             float64 `json:"cash"`
	Income           float64 `json:"income"`
	Turnover         float64 `json:"turnover"`
	TransactionCount int     `json:"transaction_count"`
	ActiveDays       int     `json:"active_days"`
}

type StoreKPI struct {
	StoreID    string  `json:"store_id"`
	StoreName  string  `json:"store_name"`
	PosGross   float64 `json:"pos_gross"`
	PosNet     float64 `json:"pos_net"`
	Commission float64 `json:"commission"`
	Cash       float64 `json:"cash"`
	Income     float64 `json:"income"`
}

type DailyPoint struct {
	Date   string  `json:"date"`
	Label  string  `json:"label"`
	PosNet float64 `json:"pos_net"`
	Cash   float64 `json:"cash"`
	Income float64 `json:"income"`
}

type StoreSummary struct {
	StoreID          string  `json:"store_id"`
	StoreName        string  `json:"store_name"`
	Turnover         float64 `json:"turnover"`
	Income           float64 `json:"income"`
	TransactionCount int     `json:"transaction_count"`
	MaxTransaction   float64 `json:"max_transaction"`
	MinTransaction   float64 `json:"min_transaction"`
	AvgTransaction   float64 `json:"avg_transaction"`
	ActiveDays       int     `json:"active_days"`
}

type StoreTrendPoint struct {
	Key    string             `json:"key"`
	Label  string             `json:"label"`
	Stores map[string]float64 `json:"stores"`
}

type MonthlySummaryRow struct {
	Month      string  `json:"month"`
	Label      string  `json:"label"`
	PosGross   float64 `json:"pos_gross"`
	PosNet     float64 `json:"pos_net"`
	Commission float64 `json:"commission"`
	Cash       float64 `json:"cash"`
	Income     float64 `json:"income"`
}

type YearOverYearRow struct {
	StoreID          string  `json:"store_id"`
	StoreName        string  `json:"store_name"`
	CurrentTurnover  float64 `json:"current_turnover"`
	PreviousTurnover float64 `json:"previous_turnover"`
	Change           float64 `json:"change"`
	ChangeLabel      string  `json:"change_label"`
}

type LamiaReport struct {
	Range             domain.DateRange    `json:"range"`
	PreviousRange     domain.DateRange    `json:"previous_range"`
	Granularity       string              `json:"granularity"`
	Locale            string              `json:"locale"`
	KPIs              LamiaKPIs           `json:"kpis"`
	StoreKPIs         []StoreKPI          `json:"store_kpis"`
	DailyTrend        []DailyPoint        `json:"daily_trend"`
	StoreSummary      []StoreSummary      `json:"store_summary"`
	StoreTrend        []StoreTrendPoint   `json:"store_trend"`
	MonthlySummary    []MonthlySummaryRow `json:"monthly_summary"`
	YearOverYear      []YearOverYearRow   `json:"year_over_year"`
	YearOverYearTotal YearOverYearRow     `json:"year_over_year_total"`
}

// PreviousYear shifts a range back by exactly one calendar year.
func PreviousYear(r domain.DateRange) domain.DateRange {
	return domain.DateRange{From: r.From.AddDate(-1, 0, 0), To: r.To.AddDate(-1, 0, 0)}
}

// PercentChange compares two turnovers. A previous value of zero yields 0%
// when the current value is also zero and +100% otherwise.
func PercentChange(current, previous float64) (float64, string) {
	current = finite(current)
	previous = finite(previous)
	var change decimal.Decimal
	switch {
	case previous == 0 && current == 0:
		change = decimal.Zero
	case previous == 0:
		change = decimal.NewFromInt(100)
	default:
		cur := decimal.NewFromFloat(current)
		prev := decimal.NewFromFloat(previous)
		change = cur.Sub(prev).Div(prev.Abs()).Mul(decimal.NewFromInt(100)).Round(1)
	}

	value, _ := change.Float64()
	label := change.String() + "%"
	if change.Sign() > 0 {
		label = "+" + label
	}
	return value, label
}

// lamiaEntry is a POS or cash record reduced to what the aggregations need.
type lamiaEntry struct {
	storeID   string
	storeName string
	local     string
	day       string
	gross     float64
	net       float64
	cash      float64
}

func (e lamiaEntry) income() float64 {
	return e.net + e.cash
}

func (e lamiaEntry) turnover() float64 {
	return e.gross + e.cash
}

func lamiaEntries(pos []domain.PosTransaction, cash []domain.CashTransaction, r domain.DateRange, g Granularity) []lamiaEntry {
	entries := make([]lamiaEntry, 0, len(pos)+len(cash))
	for _, p := range pos {
		if !r.Contains(p.Date) {
			continue
		}
		local := ToLocalDay(p.Date)
		entries = append(entries, lamiaEntry{
			storeID:   p.StoreID,
			storeName: storeName(p.StoreID, p.StoreName),
			local:     bucketKey(local, g),
			day:       DayKey(local),
			gross:     finite(p.Amount),
			net:       finite(p.Net),
		})
	}
	for _, c := range cash {
		if !r.Contains(c.Date) {
			continue
		}
		local := ToLocalDay(c.Date)
		entries = append(entries, lamiaEntry{
			storeID:   c.StoreID,
			storeName: storeName(c.StoreID, c.StoreName),
			local:     bucketKey(local, g),
			day:       DayKey(local),
			cash:      finite(c.Amount),
		})
	}
	return entries
}

func storeName(id, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return id
}

// BuildLamiaReport reduces the POS/cash snapshot into the retail report.
func BuildLamiaReport(in LamiaInput) LamiaReport {
	labeler := NewLabeler(in.Locale)
	granularity := GranularityFor(in.Range)
	previousRange := PreviousYear(in.Range)

	current := lamiaEntries(in.Pos, in.Cash, in.Range, granularity)
	previous := lamiaEntries(in.PreviousPos, in.PreviousCash, previousRange, granularity)

	rows, total := yearOverYear(current, previous, labeler)
	return LamiaReport{
		Range:             in.Range,
		PreviousRange:     previousRange,
		Granularity:       granularity.String(),
		Locale:            labeler.Locale(),
		KPIs:              lamiaKPIs(current),
		StoreKPIs:         storeKPIs(current),
		DailyTrend:        dailyTrend(current, labeler),
		StoreSummary:      storeSummaries(current),
		StoreTrend:        storeTrend(current, granularity, labeler),
		MonthlySummary:    monthlySummary(in.Pos, in.Cash, in.Range, labeler),
		YearOverYear:      rows,
		YearOverYearTotal: total,
	}
}

func lamiaKPIs(entries []lamiaEntry) LamiaKPIs {
	var k LamiaKPIs
	days := map[string]struct{}{}
	for _, e := range entries {
		k.PosGross += e.gross
		k.PosNet += e.net
		k.Cash += e.cash
		k.TransactionCount++
		days[e.day] = struct{}{}
	}
	k.Commission = k.PosGross - k.PosNet
	k.Income = k.PosNet + k.Cash
	k.Turnover = k.PosGross + k.Cash
	k.ActiveDays = len(days)
	return k
}

func storeKPIs(entries []lamiaEntry) []StoreKPI {
	byStore := map[string]*StoreKPI{}
	for _, e := range entries {
		row, ok := byStore[e.storeID]
		if !ok {
			row = &StoreKPI{StoreID: e.storeID, StoreName: e.storeName}
			byStore[e.storeID] = row
		}
		row.PosGross += e.gross
		row.PosNet += e.net
		row.Cash += e.cash
	}

	rows := make([]StoreKPI, 0, len(byStore))
	for _, row := range byStore {
		row.Commission = row.PosGross - row.PosNet
		row.Income = row.PosNet + row.Cash
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b StoreKPI) int {
		if c := cmp.Compare(b.Income, a.Income); c != 0 {
			return c
		}
		return strings.Compare(a.StoreID, b.StoreID)
	})
	return rows
}

// dailyTrend lists only local days that have at least one transaction,
// oldest first.
func dailyTrend(entries []lamiaEntry, labeler Labeler) []DailyPoint {
	byDay := map[string]*DailyPoint{}
	for _, e := range entries {
		point, ok := byDay[e.day]
		if !ok {
			point = &DailyPoint{Date: e.day}
			byDay[e.day] = point
		}
		point.PosNet += e.net
		point.Cash += e.cash
	}

	points := make([]DailyPoint, 0, len(byDay))
	for _, point := range byDay {
		point.Income = point.PosNet + point.Cash
		point.Label = dayLabel(point.Date, labeler)
		points = append(points, *point)
	}
	slices.SortFunc(points, func(a, b DailyPoint) int {
		return strings.Compare(a.Date, b.Date)
	})
	return points
}

func storeSummaries(entries []lamiaEntry) []StoreSummary {
	type acc struct {
		summary StoreSummary
		days    map[string]struct{}
	}
	byStore := map[string]*acc{}
	for _, e := range entries {
		a, ok := byStore[e.storeID]
		if !ok {
			a = &acc{
				summary: StoreSummary{StoreID: e.storeID, StoreName: e.storeName},
				days:    map[string]struct{}{},
			}
			byStore[e.storeID] = a
		}
		value := e.turnover()
		s := &a.summary
		if s.TransactionCount == 0 || value > s.MaxTransaction {
			s.MaxTransaction = value
		}
		if s.TransactionCount == 0 || value < s.MinTransaction {
			s.MinTransaction = value
		}
		s.TransactionCount++
		s.Turnover += value
		s.Income += e.income()
		a.days[e.day] = struct{}{}
	}

	rows := make([]StoreSummary, 0, len(byStore))
	for _, a := range byStore {
		s := a.summary
		s.ActiveDays = len(a.days)
		if s.TransactionCount > 0 {
			s.AvgTransaction = s.Turnover / float64(s.TransactionCount)
		}
		rows = append(rows, s)
	}
	slices.SortFunc(rows, func(a, b StoreSummary) int {
		if c := cmp.Compare(b.Turnover, a.Turnover); c != 0 {
			return c
		}
		return strings.Compare(a.StoreID, b.StoreID)
	})
	return rows
}

func storeTrend(entries []lamiaEntry, g Granularity, labeler Labeler) []StoreTrendPoint {
	byKey := map[string]*StoreTrendPoint{}
	for _, e := range entries {
		point, ok := byKey[e.local]
		if !ok {
			point = &StoreTrendPoint{Key: e.local, Stores: map[string]float64{}}
			byKey[e.local] = point
		}
		point.Stores[e.storeName] += e.income()
	}

	points := make([]StoreTrendPoint, 0, len(byKey))
	for _, point := range byKey {
		if g == Month {
			point.Label = monthLabel(point.Key, labeler)
		} else {
			point.Label = dayLabel(point.Key, labeler)
		}
		points = append(points, *point)
	}
	slices.SortFunc(points, func(a, b StoreTrendPoint) int {
		return strings.Compare(a.Key, b.Key)
	})
	return points
}

func monthlySummary(pos []domain.PosTransaction, cash []domain.CashTransaction, r domain.DateRange, labeler Labeler) []MonthlySummaryRow {
	byMonth := map[string]*MonthlySummaryRow{}
	for _, e := range lamiaEntries(pos, cash, r, Month) {
		row, ok := byMonth[e.local]
		if !ok {
			row = &MonthlySummaryRow{Month: e.local, Label: monthLabel(e.local, labeler)}
			byMonth[e.local] = row
		}
		row.PosGross += e.gross
		row.PosNet += e.net
		row.Cash += e.cash
	}

	rows := make([]MonthlySummaryRow, 0, len(byMonth))
	for _, row := range byMonth {
		row.Commission = row.PosGross - row.PosNet
		row.Income = row.PosNet + row.Cash
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b MonthlySummaryRow) int {
		return strings.Compare(b.Month, a.Month)
	})
	return rows
}

func yearOverYear(current, previous []lamiaEntry, labeler Labeler) ([]YearOverYearRow, YearOverYearRow) {
	byStore := map[string]*YearOverYearRow{}
	row := func(e lamiaEntry) *YearOverYearRow {
		r, ok := byStore[e.storeID]
		if !ok {
			r = &YearOverYearRow{StoreID: e.storeID, StoreName: e.storeName}
			byStore[e.storeID] = r
		}
		return r
	}
	total := YearOverYearRow{StoreID: domain.AllStores, StoreName: labeler.totalLabel()}
	for _, e := range current {
		row(e).CurrentTurnover += e.turnover()
		total.CurrentTurnover += e.turnover()
	}
	for _, e := range previous {
		row(e).PreviousTurnover += e.turnover()
		total.PreviousTurnover += e.turnover()
	}

	rows := make([]YearOverYearRow, 0, len(byStore))
	for _, r := range byStore {
		r.Change, r.ChangeLabel = PercentChange(r.CurrentTurnover, r.PreviousTurnover)
		rows = append(rows, *r)
	}
	total.Change, total.ChangeLabel = PercentChange(total.CurrentTurnover, total.PreviousTurnover)
	slices.SortFunc(rows, func(a, b YearOverYearRow) int {
		if c := cmp.Compare(b.CurrentTurnover, a.CurrentTurnover); c != 0 {
			return c
		}
		return strings.Compare(a.StoreID, b.StoreID)
	})
	return rows, total
}

// dayLabel and monthLabel render labels from the stable keys produced by
// DayKey and MonthKey.
func dayLabel(key string, labeler Labeler) string {
	t, err := time.Parse("2006-01-02", key)
	if err != nil {
		return key
	}
	return labeler.Label(t, Day)
}

func monthLabel(key string, labeler Labeler) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return labeler.Label(t, Month)
}
