package httpapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"lfpanel/backend/internal/analytics"
)

func (a *API) handleEtsyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	q := reportQuery(r)
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "csv") {
		report, err := a.service.EtsyReport(r.Context(), q)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		body, err := etsyMonthlyCSV(report)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeCSV(w, "etsy-monthly", report.Range.From.Format("2006-01-02"), body)
		return
	}

	payload, err := a.service.EtsyReportJSON(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, payload)
}

func (a *API) handleLamiaReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	q := reportQuery(r)
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "csv") {
		report, err := a.service.LamiaReport(r.Context(), q)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		body, err := lamiaMonthlyCSV(report)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeCSV(w, "lamiaferis-monthly", report.Range.From.Format("2006-01-02"), body)
		return
	}

	payload, err := a.service.LamiaReportJSON(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, payload)
}

func writeCSV(w http.ResponseWriter, name string, from string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s-%s.csv\"", name, from))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func etsyMonthlyCSV(report analytics.EtsyReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	rows := [][]string{{
		"month", "label", "sales_count", "revenue_usd", "revenue_tl", "cost_usd",
		"gross_profit_usd", "gross_profit_tl", "expense_usd", "expense_tl",
		"etsy_ads_usd", "profit_usd", "profit_tl",
	}}
	for _, row := range report.Monthly {
		rows = append(rows, []string{
			row.Month,
			row.Label,
			strconv.Itoa(row.SalesCount),
			money(row.RevenueUSD),
			money(row.RevenueTL),
			money(row.CostUSD),
			money(row.GrossProfitUSD),
			money(row.GrossProfitTL),
			money(row.ExpenseUSD),
			money(row.ExpenseTL),
			money(row.EtsyAdsUSD),
			money(row.ProfitUSD),
			money(row.ProfitTL),
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lamiaMonthlyCSV(report analytics.LamiaReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	rows := [][]string{{"month", "label", "pos_gross", "pos_net", "commission", "cash", "income"}}
	for _, row := range report.MonthlySummary {
		rows = append(rows, []string{
			row.Month,
			row.Label,
			money(row.PosGross),
			money(row.PosNet),
			money(row.Commission),
			money(row.Cash),
			money(row.Income),
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
