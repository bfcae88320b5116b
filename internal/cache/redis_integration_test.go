package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestRedisBackendTagInvalidation(t *testing.T) {
	addr := os.Getenv("LFPANEL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set LFPANEL_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	backend := NewRedisBackend(addr, os.Getenv("LFPANEL_TEST_REDIS_PASSWORD"), 0)
	t.Cleanup(func() { _ = backend.Close() })
	if err := backend.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	tag := fmt.Sprintf("brand:it-%d", time.Now().UnixNano())
	key := "report:" + tag
	if err := backend.Set(ctx, key, []byte("payload"), []string{tag}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := backend.Get(ctx, key)
	if err != nil || !ok || string(got) != "payload" {
		t.Fatalf("expected hit, got %q %v %v", got, ok, err)
	}

	if err := backend.InvalidateTag(ctx, tag); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, err := backend.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss after invalidation, got %v %v", ok, err)
	}
}

func TestRedisBackendInvalidatesLargeTagSets(t *testing.T) {
	addr := os.Getenv("LFPANEL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set LFPANEL_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	backend := NewRedisBackend(addr, os.Getenv("LFPANEL_TEST_REDIS_PASSWORD"), 0)
	t.Cleanup(func() { _ = backend.Close() })

	tag := fmt.Sprintf("brand:bulk-%d", time.Now().UnixNano())
	for i := 0; i < 1200; i++ {
		if err := backend.Set(ctx, fmt.Sprintf("report:%s:%d", tag, i), []byte("v"), []string{tag}, time.Minute); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}
	if err := backend.InvalidateTag(ctx, tag); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	for _, i := range []int{0, 499, 500, 1199} {
		if _, ok, err := backend.Get(ctx, fmt.Sprintf("report:%s:%d", tag, i)); err != nil || ok {
			t.Fatalf("expected key %d gone, got %v %v", i, ok, err)
		}
	}
	if n, err := backend.client.Exists(ctx, redisKeyPrefix+"tag:"+tag).Result(); err != nil || n != 0 {
		t.Fatalf("expected tag set removed, got %d %v", n, err)
	}

	// A set landing after the atomic invalidation keeps its membership.
	if err := backend.Set(ctx, "report:"+tag+":late", []byte("v"), []string{tag}, time.Minute); err != nil {
		t.Fatalf("late set: %v", err)
	}
	if err := backend.InvalidateTag(ctx, tag); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
	if _, ok, _ := backend.Get(ctx, "report:"+tag+":late"); ok {
		t.Fatalf("expected late entry to be invalidated")
	}
}
