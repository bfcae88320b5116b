package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrComputeRunsOnceForConcurrentCallers(t *testing.T) {
	c := NewReportCache(NewMemoryBackend(), time.Minute)
	release := make(chan struct{})
	var calls atomic.Int32

	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte(`{"ok":true}`), nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "report:etsy", []string{BrandTag("etsy")}, compute)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one computation, got %d", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if string(results[i]) != `{"ok":true}` {
			t.Fatalf("caller %d got %s", i, results[i])
		}
	}

	if _, err := c.GetOrCompute(context.Background(), "report:etsy", []string{BrandTag("etsy")}, compute); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected cached hit, got %d computations", got)
	}
}

func TestInvalidateDropsTaggedEntries(t *testing.T) {
	c := NewReportCache(NewMemoryBackend(), time.Minute)
	ctx := context.Background()
	var calls atomic.Int32
	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("payload"), nil
	}

	etsyTags := []string{BrandTag("etsy")}
	lamiaTags := []string{BrandTag("lamiaferis")}
	_, _ = c.GetOrCompute(ctx, "a", etsyTags, compute)
	_, _ = c.GetOrCompute(ctx, "b", etsyTags, compute)
	_, _ = c.GetOrCompute(ctx, "c", lamiaTags, compute)
	if calls.Load() != 3 {
		t.Fatalf("expected 3 computations, got %d", calls.Load())
	}

	if err := c.Invalidate(ctx, BrandTag("etsy")); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = c.GetOrCompute(ctx, "a", etsyTags, compute)
	_, _ = c.GetOrCompute(ctx, "b", etsyTags, compute)
	_, _ = c.GetOrCompute(ctx, "c", lamiaTags, compute)
	if calls.Load() != 5 {
		t.Fatalf("expected only etsy entries to recompute, got %d computations", calls.Load())
	}
}

func TestComputationOverlappingInvalidationIsNotStored(t *testing.T) {
	backend := NewMemoryBackend()
	c := NewReportCache(backend, time.Minute)
	ctx := context.Background()
	tags := []string{BrandTag("etsy")}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrCompute(ctx, "k", tags, func(context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte("stale"), nil
		})
	}()

	<-started
	if err := c.Invalidate(ctx, tags...); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(release)
	<-done

	if _, ok, _ := backend.Get(ctx, "k"); ok {
		t.Fatalf("expected stale payload not to be stored")
	}
}

func TestComputeErrorIsNotCached(t *testing.T) {
	c := NewReportCache(NewMemoryBackend(), time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	if _, err := c.GetOrCompute(ctx, "k", nil, func(context.Context) ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	got, err := c.GetOrCompute(ctx, "k", nil, func(context.Context) ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(got) != "ok" {
		t.Fatalf("expected recompute after error, got %q %v", got, err)
	}
}

func TestCallerCancellationDoesNotAbortSharedComputation(t *testing.T) {
	c := NewReportCache(NewMemoryBackend(), time.Minute)
	release := make(chan struct{})
	compute := func(ctx context.Context) ([]byte, error) {
		<-release
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []byte("ok"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(ctx, "k", nil, compute)
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	secondResult := make(chan []byte, 1)
	go func() {
		payload, _ := c.GetOrCompute(context.Background(), "k", nil, compute)
		secondResult <- payload
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected first caller to see cancellation, got %v", err)
	}
	close(release)
	if got := <-secondResult; string(got) != "ok" {
		t.Fatalf("expected second caller to get payload, got %q", got)
	}
}

func TestMemoryBackendExpires(t *testing.T) {
	m := NewMemoryBackend()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.Set(ctx, "k", []byte("v"), nil, time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	now = now.Add(time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestNoopBackendAlwaysComputes(t *testing.T) {
	c := NewReportCache(NoopBackend{}, time.Minute)
	var calls int
	for i := 0; i < 3; i++ {
		_, _ = c.GetOrCompute(context.Background(), "k", nil, func(context.Context) ([]byte, error) {
			calls++
			return []byte("v"), nil
		})
	}
	if calls != 3 {
		t.Fatalf("expected 3 computations, got %d", calls)
	}
}

func TestKeyString(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("TRT", 3*3600))
	key := Key{Brand: "etsy", Store: "all", From: from, To: from.Add(time.Hour), Locale: "tr"}
	want := "report:etsy:all:2023-12-31T21:00:00Z:2023-12-31T22:00:00Z:tr"
	if key.String() != want {
		t.Fatalf("expected %q, got %q", want, key.String())
	}
}

// twoStepBackend reads a tag's members and deletes them in separate steps,
// the way a networked store does, and runs between before the delete.
type twoStepBackend struct {
	mu      sync.Mutex
	entries map[string][]byte
	tags    map[string]map[string]struct{}
	between func()
}

func newTwoStepBackend() *twoStepBackend {
	return &twoStepBackend{entries: map[string][]byte{}, tags: map[string]map[string]struct{}{}}
}

func (b *twoStepBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	payload, ok := b.entries[key]
	return payload, ok, nil
}

func (b *twoStepBackend) Set(_ context.Context, key string, payload []byte, tags []string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = payload
	for _, tag := range tags {
		if b.tags[tag] == nil {
			b.tags[tag] = map[string]struct{}{}
		}
		b.tags[tag][key] = struct{}{}
	}
	return nil
}

func (b *twoStepBackend) InvalidateTag(_ context.Context, tag string) error {
	b.mu.Lock()
	members := make([]string, 0, len(b.tags[tag]))
	for key := range b.tags[tag] {
		members = append(members, key)
	}
	between := b.between
	b.mu.Unlock()

	if between != nil {
		between()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range members {
		delete(b.entries, key)
	}
	delete(b.tags, tag)
	return nil
}

func TestEntryStoredDuringInvalidationKeepsItsTag(t *testing.T) {
	backend := newTwoStepBackend()
	c := NewReportCache(backend, time.Minute)
	ctx := context.Background()
	tags := []string{BrandTag("etsy")}

	stored := make(chan struct{})
	backend.between = func() {
		backend.between = nil
		go func() {
			defer close(stored)
			_, _ = c.GetOrCompute(ctx, "k2", tags, func(context.Context) ([]byte, error) {
				return []byte("fresh"), nil
			})
		}()
		// Give the computation a chance to store inside the gap.
		select {
		case <-stored:
		case <-time.After(50 * time.Millisecond):
		}
	}

	if err := c.Invalidate(ctx, tags...); err != nil {
		t.Fatalf("first invalidate: %v", err)
	}
	<-stored
	if _, ok, _ := backend.Get(ctx, "k2"); !ok {
		t.Fatalf("expected computation started after invalidation to be stored")
	}

	if err := c.Invalidate(ctx, tags...); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
	if _, ok, _ := backend.Get(ctx, "k2"); ok {
		t.Fatalf("expected second invalidation to drop k2")
	}
}

func TestMemoryBackendSweepsExpiredEntriesOnSet(t *testing.T) {
	m := NewMemoryBackend()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()
	tags := []string{BrandTag("etsy")}

	for i := 0; i < 1000; i++ {
		_ = m.Set(ctx, fmt.Sprintf("report:%d", i), []byte("v"), tags, time.Minute)
	}
	now = now.Add(24 * time.Hour)
	_ = m.Set(ctx, "report:latest", []byte("v"), tags, time.Minute)

	if len(m.entries) != 1 {
		t.Fatalf("expected only the latest entry to remain, got %d", len(m.entries))
	}
	if got := len(m.tags[BrandTag("etsy")]); got != 1 {
		t.Fatalf("expected tag index to hold 1 key, got %d", got)
	}
}

func TestMemoryBackendExpiredGetDropsTagMembership(t *testing.T) {
	m := NewMemoryBackend()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.Set(ctx, "k", []byte("v"), []string{BrandTag("lamiaferis")}, time.Minute)
	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if _, ok := m.tags[BrandTag("lamiaferis")]; ok {
		t.Fatalf("expected empty tag set to be removed")
	}
}
