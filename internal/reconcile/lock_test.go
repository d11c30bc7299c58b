package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLocker_Exclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLocker(rdb, 10*time.Second)
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "m1")
	if err != nil || !ok {
		t.Fatalf("first Acquire() = (%v, %v)", ok, err)
	}
	if ttl := mr.TTL("lock:reconcile:m1"); ttl <= 0 {
		t.Fatalf("expected lock ttl, got %v", ttl)
	}

	if _, ok, err := l.Acquire(ctx, "m1"); err != nil || ok {
		t.Fatalf("second Acquire() must fail while held, got (%v, %v)", ok, err)
	}
	if _, ok, _ := l.Acquire(ctx, "m2"); !ok {
		t.Fatalf("other keys must be independent")
	}

	release()
	if mr.Exists("lock:reconcile:m1") {
		t.Fatalf("release must delete the key")
	}
	if _, ok, _ := l.Acquire(ctx, "m1"); !ok {
		t.Fatalf("expected Acquire() after release to succeed")
	}
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLocker(rdb, time.Second)
	ctx := context.Background()

	release, ok, _ := l.Acquire(ctx, "m1")
	if !ok {
		t.Fatalf("Acquire() failed")
	}

	// our lock expires and another worker takes it
	mr.FastForward(2 * time.Second)
	if _, ok, _ := l.Acquire(ctx, "m1"); !ok {
		t.Fatalf("expected re-acquire after expiry")
	}

	release()
	if !mr.Exists("lock:reconcile:m1") {
		t.Fatalf("stale release must not delete another holder's lock")
	}
}

func TestRedisLocker_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	release, ok, err := NewRedisLocker(rdb, time.Second).Acquire(context.Background(), "m1")
	if err == nil || ok {
		t.Fatalf("expected error with redis down, got (%v, %v)", ok, err)
	}
	release()
}
