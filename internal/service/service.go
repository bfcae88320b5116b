package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lfpanel/backend/internal/analytics"
	"lfpanel/backend/internal/cache"
	"lfpanel/backend/internal/domain"
	"lfpanel/backend/internal/store"
	"lfpanel/backend/internal/xid"
)

var (
	ErrInvalidFilter = errors.New("invalid report filter")
	ErrForbidden     = errors.New("admin role required")
)

// FetchError reports that a record stream could not be loaded. No partial
// report accompanies it.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("could not load %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo          store.Repository
	reports       *cache.ReportCache
	defaultLocale string
	now           func() time.Time
}

func New(repo store.Repository, reports *cache.ReportCache, defaultLocale string) *Service {
	if reports == nil {
		reports = cache.NewReportCache(cache.NoopBackend{}, 0)
	}
	if defaultLocale != analytics.LocaleEN {
		defaultLocale = analytics.LocaleTR
	}

	return &Service{
		repo:          repo,
		reports:       reports,
		defaultLocale: defaultLocale,
		now:           time.Now,
	}
}

func (s *Service) DefaultLocale() string {
	return s.defaultLocale
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	return nil
}

// invalidate drops every cached report of brand. It runs synchronously
// after a write; failures are logged and never fail the write.
func (s *Service) invalidate(ctx context.Context, brand string) {
	if err := s.reports.Invalidate(ctx, cache.BrandTag(brand)); err != nil {
		log.Warn().Err(err).Str("brand", brand).Msg("report cache invalidation failed")
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, brand string, date string, limit int) ([]domain.AuditLog, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	now := s.now().UTC()
	from, to := now.Add(-24*time.Hour), now.Add(time.Second)
	if strings.TrimSpace(date) != "" {
		parsed, err := parseLocalDate(date)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q", store.ErrInvalidRecord, date)
		}
		from, to = parsed, parsed.Add(24*time.Hour)
	}

	return s.repo.ListAuditLogs(ctx, strings.TrimSpace(brand), from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, brand string, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		Brand:         brand,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		log.Warn().Err(err).
			Str("action", action).
			Str("entity", entityType+"/"+entityID).
			Msg("failed to write audit log")
	}
}

// parseLocalDate reads "2006-01-02" as local midnight, or a full RFC3339
// instant, and returns it in UTC.
func parseLocalDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed.Add(-analytics.LocalOffset).UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

// endOfLocalDay returns the last instant of the local day containing t.
func endOfLocalDay(t time.Time) time.Time {
	local := analytics.ToLocalDay(t)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(24*time.Hour - time.Nanosecond).Add(-analytics.LocalOffset)
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func amountOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func validAmount(v *float64) bool {
	return v == nil || (!math.IsNaN(*v) && !math.IsInf(*v, 0) && *v >= 0)
}
