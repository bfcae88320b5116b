package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the encoded payload for a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// ReportCache memoizes encoded reports over a Backend. Concurrent callers
// asking for the same key share one computation. A computation that
// overlaps an invalidation of one of its tags is returned to its callers but
// never stored.
type ReportCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

func NewReportCache(backend Backend, ttl time.Duration) *ReportCache {
	if backend == nil {
		backend = NoopBackend{}
	}
	return &ReportCache{
		backend:     backend,
		ttl:         ttl,
		generations: make(map[string]uint64),
	}
}

// generation sums the counters of the given tags. Counters only grow, so
// any invalidation of any tag changes the sum.
func (c *ReportCache) generation(tags []string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sum uint64
	for _, tag := range tags {
		sum += c.generations[tag]
	}
	return sum
}

func (c *ReportCache) GetOrCompute(ctx context.Context, key string, tags []string, compute ComputeFunc) ([]byte, error) {
	payload, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache get failed")
	} else if ok {
		return payload, nil
	}

	gen := c.generation(tags)
	flightKey := fmt.Sprintf("%s#%d", key, gen)
	result := c.group.DoChan(flightKey, func() (any, error) {
		// The shared computation must not die with whichever caller
		// happened to start it.
		flightCtx := context.WithoutCancel(ctx)
		payload, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(flightCtx, key, payload, tags, gen)
		return payload, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// storeIfCurrent writes payload unless one of its tags was invalidated
// after gen was taken. Holding mu across the write orders it before any
// later Invalidate, whose backend call then removes it.
func (c *ReportCache) storeIfCurrent(ctx context.Context, key string, payload []byte, tags []string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var current uint64
	for _, tag := range tags {
		current += c.generations[tag]
	}
	if current != gen {
		return
	}
	if err := c.backend.Set(ctx, key, payload, tags, c.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache set failed")
	}
}

// Invalidate drops every entry tagged with any of tags. In-flight
// computations for those tags are not stored. mu is held until the backend
// has dropped the tag, so no Set can land between a backend reading a tag's
// members and deleting the tag.
func (c *ReportCache) Invalidate(ctx context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tag := range tags {
		c.generations[tag]++
	}

	var errs []error
	for _, tag := range tags {
		if err := c.backend.InvalidateTag(ctx, tag); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", tag, err))
		}
	}
	return errors.Join(errs...)
}
