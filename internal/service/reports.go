package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"lfpanel/backend/internal/analytics"
	"lfpanel/backend/internal/cache"
	"lfpanel/backend/internal/domain"
	"lfpanel/backend/internal/store"
)

// ReportFilter validates a raw query. Store defaults to "all", an absent
// from means the epoch and an absent to means the end of the current local
// day. A date-only to covers that whole local day.
func (s *Service) ReportFilter(q domain.ReportQuery) (domain.ReportFilter, error) {
	filter := domain.ReportFilter{
		StoreID: defaultString(q.StoreID, domain.AllStores),
		Locale:  analytics.ResolveLocale(s.defaultLocale, q.Locale),
		DateRange: domain.DateRange{
			From: time.Unix(0, 0).UTC(),
			To:   endOfLocalDay(s.now()),
		},
	}

	if from := strings.TrimSpace(q.From); from != "" {
		parsed, err := parseLocalDate(from)
		if err != nil {
			return domain.ReportFilter{}, fmt.Errorf("%w: from %q", ErrInvalidFilter, q.From)
		}
		filter.DateRange.From = parsed
	}
	if to := strings.TrimSpace(q.To); to != "" {
		parsed, err := parseLocalDate(to)
		if err != nil {
			return domain.ReportFilter{}, fmt.Errorf("%w: to %q", ErrInvalidFilter, q.To)
		}
		if len(to) == len("2006-01-02") {
			parsed = parsed.Add(24*time.Hour - time.Nanosecond)
		}
		filter.DateRange.To = parsed
	}
	if filter.DateRange.From.After(filter.DateRange.To) {
		return domain.ReportFilter{}, fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}
	return filter, nil
}

func reportKey(brand string, filter domain.ReportFilter) string {
	return cache.Key{
		Brand:  brand,
		Store:  filter.StoreID,
		From:   filter.DateRange.From,
		To:     filter.DateRange.To,
		Locale: filter.Locale,
	}.String()
}

func recordQuery(filter domain.ReportFilter) store.RecordQuery {
	return store.RecordQuery{
		Store: filter.StoreID,
		From:  filter.DateRange.From,
		To:    filter.DateRange.To,
	}
}

// EtsyReportJSON returns the encoded storefront report, computing it at most
// once per filter until the next sale or expense write.
func (s *Service) EtsyReportJSON(ctx context.Context, q domain.ReportQuery) ([]byte, error) {
	filter, err := s.ReportFilter(q)
	if err != nil {
		return nil, err
	}

	tags := []string{cache.BrandTag(domain.BrandEtsy)}
	return s.reports.GetOrCompute(ctx, reportKey(domain.BrandEtsy, filter), tags, func(ctx context.Context) ([]byte, error) {
		report, err := s.computeEtsyReport(ctx, filter)
		if err != nil {
			return nil, err
		}
		return json.Marshal(report)
	})
}

func (s *Service) EtsyReport(ctx context.Context, q domain.ReportQuery) (analytics.EtsyReport, error) {
	payload, err := s.EtsyReportJSON(ctx, q)
	if err != nil {
		return analytics.EtsyReport{}, err
	}
	var report analytics.EtsyReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return analytics.EtsyReport{}, fmt.Errorf("decode etsy report: %w", err)
	}
	return report, nil
}

func (s *Service) computeEtsyReport(ctx context.Context, filter domain.ReportFilter) (analytics.EtsyReport, error) {
	started := time.Now()
	query := recordQuery(filter)

	var sales []domain.Sale
	var expenses []domain.Expense
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.repo.ListSales(gctx, query)
		if err != nil {
			return &FetchError{Source: "sales", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.ListExpenses(gctx, query)
		if err != nil {
			return &FetchError{Source: "expenses", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return analytics.EtsyReport{}, err
	}

	report := analytics.BuildEtsyReport(analytics.EtsyInput{
		Sales:    sales,
		Expenses: expenses,
		Range:    filter.DateRange,
		Locale:   filter.Locale,
	})
	log.Debug().
		Str("brand", domain.BrandEtsy).
		Str("store", filter.StoreID).
		Int("sales", len(sales)).
		Int("expenses", len(expenses)).
		Dur("elapsed", time.Since(started)).
		Msg("report computed")
	return report, nil
}

// LamiaReportJSON returns the encoded retail report including the
// year-over-year comparison.
func (s *Service) LamiaReportJSON(ctx context.Context, q domain.ReportQuery) ([]byte, error) {
	filter, err := s.ReportFilter(q)
	if err != nil {
		return nil, err
	}

	tags := []string{cache.BrandTag(domain.BrandLamiaferis)}
	return s.reports.GetOrCompute(ctx, reportKey(domain.BrandLamiaferis, filter), tags, func(ctx context.Context) ([]byte, error) {
		report, err := s.computeLamiaReport(ctx, filter)
		if err != nil {
			return nil, err
		}
		return json.Marshal(report)
	})
}

func (s *Service) LamiaReport(ctx context.Context, q domain.ReportQuery) (analytics.LamiaReport, error) {
	payload, err := s.LamiaReportJSON(ctx, q)
	if err != nil {
		return analytics.LamiaReport{}, err
	}
	var report analytics.LamiaReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return analytics.LamiaReport{}, fmt.Errorf("decode lamiaferis report: %w", err)
	}
	return report, nil
}

func (s *Service) computeLamiaReport(ctx context.Context, filter domain.ReportFilter) (analytics.LamiaReport, error) {
	started := time.Now()
	current := recordQuery(filter)
	previousRange := analytics.PreviousYear(filter.DateRange)
	previous := store.RecordQuery{Store: filter.StoreID, From: previousRange.From, To: previousRange.To}

	var in analytics.LamiaInput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Pos, err = s.repo.ListPosTransactions(gctx, current)
		if err != nil {
			return &FetchError{Source: "pos transactions", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.Cash, err = s.repo.ListCashTransactions(gctx, current)
		if err != nil {
			return &FetchError{Source: "cash transactions", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.PreviousPos, err = s.repo.ListPosTransactions(gctx, previous)
		if err != nil {
			return &FetchError{Source: "previous year pos transactions", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		in.PreviousCash, err = s.repo.ListCashTransactions(gctx, previous)
		if err != nil {
			return &FetchError{Source: "previous year cash transactions", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return analytics.LamiaReport{}, err
	}

	in.Range = filter.DateRange
	in.Locale = filter.Locale
	report := analytics.BuildLamiaReport(in)
	log.Debug().
		Str("brand", domain.BrandLamiaferis).
		Str("store", filter.StoreID).
		Int("pos", len(in.Pos)).
		Int("cash", len(in.Cash)).
		Dur("elapsed", time.Since(started)).
		Msg("report computed")
	return report, nil
}
