package cache

import (
	"context"
	"fmt"
	"time"
)

// Backend stores encoded report payloads under a key, indexed by tags so a
// whole family of keys can be dropped without enumerating them.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, tags []string, ttl time.Duration) error
	InvalidateTag(ctx context.Context, tag string) error
}

// Key identifies one report computation.
type Key struct {
	Brand  string
	Store  string
	From   time.Time
	To     time.Time
	Locale string
}

func (k Key) String() string {
	return fmt.Sprintf("report:%s:%s:%s:%s:%s",
		k.Brand, k.Store,
		k.From.UTC().Format(time.RFC3339Nano), k.To.UTC().Format(time.RFC3339Nano),
		k.Locale)
}

// BrandTag is the invalidation tag shared by every report of a brand.
func BrandTag(brand string) string {
	return "brand:" + brand
}

type NoopBackend struct{}

func (NoopBackend) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopBackend) Set(_ context.Context, _ string, _ []byte, _ []string, _ time.Duration) error {
	return nil
}

func (NoopBackend) InvalidateTag(_ context.Context, _ string) error {
	return nil
}
