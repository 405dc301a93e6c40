package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, "test:"), mr
}

type cachedStats struct {
	Attempts int     `json:"attempts"`
	PassRate float64 `json:"passRate"`
}

func TestCacheHelper_SetGet(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	stored := cachedStats{Attempts: 7, PassRate: 42.5}
	if err := helper.Set(ctx, "user-1", stored, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var loaded cachedStats
	if err := helper.Get(ctx, "user-1", &loaded); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded != stored {
		t.Errorf("got %+v, want %+v", loaded, stored)
	}

	var missing cachedStats
	if err := helper.Get(ctx, "absent", &missing); err != ErrCacheNotFound {
		t.Errorf("Get on absent key = %v, want ErrCacheNotFound", err)
	}
}

func TestCacheHelper_KeyPrefix(t *testing.T) {
	helper, mr := newTestHelper(t)
	ctx := context.Background()

	if err := helper.SetString(ctx, "module:3", "cached", time.Minute); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}
	if !mr.Exists("test:module:3") {
		t.Error("expected key to be stored under the helper prefix")
	}
}

func TestCacheHelper_Delete(t *testing.T) {
	helper, mr := newTestHelper(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := helper.SetString(ctx, key, "v", time.Minute); err != nil {
			t.Fatalf("SetString(%q) failed: %v", key, err)
		}
	}

	if err := helper.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mr.Exists("test:a") || mr.Exists("test:b") {
		t.Error("deleted keys still present")
	}
	if !mr.Exists("test:c") {
		t.Error("unrelated key was removed")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, mr := newTestHelper(t)
	ctx := context.Background()

	keys := []string{"progress:user-1:1", "progress:user-1:2", "progress:user-2:1"}
	for _, key := range keys {
		if err := helper.SetString(ctx, key, "v", time.Minute); err != nil {
			t.Fatalf("SetString(%q) failed: %v", key, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "progress:user-1:*"); err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}

	if mr.Exists("test:progress:user-1:1") || mr.Exists("test:progress:user-1:2") {
		t.Error("matching keys survived invalidation")
	}
	if !mr.Exists("test:progress:user-2:1") {
		t.Error("non-matching key was removed")
	}
}

func TestCacheHelper_Exists(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	if err := helper.SetString(ctx, "present", "v", time.Minute); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}

	ok, err := helper.Exists(ctx, "present")
	if err != nil || !ok {
		t.Errorf("Exists(present) = %v, %v, want true, nil", ok, err)
	}

	ok, err = helper.Exists(ctx, "absent")
	if err != nil || ok {
		t.Errorf("Exists(absent) = %v, %v, want false, nil", ok, err)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	t.Run("cache hit skips fetch", func(t *testing.T) {
		helper, _ := newTestHelper(t)
		ctx := context.Background()

		if err := helper.Set(ctx, "stats", cachedStats{Attempts: 3}, time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		var result cachedStats
		err := helper.CacheOrExecute(ctx, "stats", &result, time.Minute, func() (interface{}, error) {
			t.Error("fetch ran despite a cached value")
			return nil, nil
		})
		if err != nil {
			t.Fatalf("CacheOrExecute failed: %v", err)
		}
		if result.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", result.Attempts)
		}
	})

	t.Run("cache miss runs fetch and fills cache", func(t *testing.T) {
		helper, mr := newTestHelper(t)
		ctx := context.Background()

		var result cachedStats
		err := helper.CacheOrExecute(ctx, "stats", &result, time.Minute, func() (interface{}, error) {
			return cachedStats{Attempts: 9, PassRate: 75}, nil
		})
		if err != nil {
			t.Fatalf("CacheOrExecute failed: %v", err)
		}
		if result.Attempts != 9 || result.PassRate != 75 {
			t.Errorf("got %+v, want fetched value", result)
		}

		// The cache write happens in the background.
		deadline := time.Now().Add(2 * time.Second)
		for !mr.Exists("test:stats") {
			if time.Now().After(deadline) {
				t.Fatal("fetched value was never cached")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("fetch errors propagate", func(t *testing.T) {
		helper, _ := newTestHelper(t)

		wantErr := errors.New("database down")
		var result cachedStats
		err := helper.CacheOrExecute(context.Background(), "stats", &result, time.Minute, func() (interface{}, error) {
			return nil, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("err = %v, want %v", err, wantErr)
		}
	})
}

func TestCacheHelper_NilClient(t *testing.T) {
	helper := NewCacheHelper(nil, "test:")
	ctx := context.Background()

	if err := helper.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Errorf("Set with nil client = %v, want nil", err)
	}
	if err := helper.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete with nil client = %v, want nil", err)
	}
	if err := helper.InvalidatePattern(ctx, "*"); err != nil {
		t.Errorf("InvalidatePattern with nil client = %v, want nil", err)
	}

	var dest string
	if err := helper.Get(ctx, "k", &dest); err != ErrCacheNotAvailable {
		t.Errorf("Get with nil client = %v, want ErrCacheNotAvailable", err)
	}

	// CacheOrExecute still serves the fetched value without a cache.
	var result cachedStats
	err := helper.CacheOrExecute(ctx, "stats", &result, time.Minute, func() (interface{}, error) {
		return cachedStats{Attempts: 2}, nil
	})
	if err != nil {
		t.Fatalf("CacheOrExecute with nil client failed: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
}

func TestCacheManager_HealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cm := NewCacheManager(client)
	if err := cm.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck = %v, want nil", err)
	}

	disabled := NewCacheManager(nil)
	if err := disabled.HealthCheck(context.Background()); err != ErrCacheNotAvailable {
		t.Errorf("HealthCheck with nil client = %v, want ErrCacheNotAvailable", err)
	}
}
