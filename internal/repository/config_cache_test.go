package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

type fakeConfigRepo struct {
	calls       int
	getActiveFn func(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error)
}

func (f *fakeConfigRepo) GetActive(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error) {
	f.calls++
	if f.getActiveFn != nil {
		return f.getActiveFn(ctx, category, title)
	}
	return nil, domain.ErrNotFound
}

func newTestCache(t *testing.T, next NotificationConfigRepository) (*CachedNotificationConfigRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache, err := NewCachedNotificationConfigRepo(next, client, time.Minute, nil)
	if err != nil {
		t.Fatalf("NewCachedNotificationConfigRepo() error = %v", err)
	}
	return cache, mr
}

func TestCachedNotificationConfigRepoReadThrough(t *testing.T) {
	t.Parallel()

	next := &fakeConfigRepo{
		getActiveFn: func(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error) {
			return &domain.NotificationConfig{
				ID:               3,
				CategoryCd:       category,
				Title:            title,
				Text:             "Listing [#LISTID]",
				NotificationList: "staff@example.org",
				Active:           true,
			}, nil
		},
	}
	cache, mr := newTestCache(t, next)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cfg, err := cache.GetActive(ctx, domain.CategoryInternal, "Listing Ready for Review")
		if err != nil {
			t.Fatalf("GetActive() error = %v", err)
		}
		if cfg.Text != "Listing [#LISTID]" || cfg.ID != 3 {
			t.Fatalf("GetActive() = %+v", cfg)
		}
	}
	if next.calls != 1 {
		t.Fatalf("underlying calls = %d, want 1", next.calls)
	}

	key := configCacheKey(domain.CategoryInternal, "Listing Ready for Review")
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("cache ttl = %v, want 1m", ttl)
	}

	if err := cache.Invalidate(ctx, domain.CategoryInternal, "Listing Ready for Review"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, err := cache.GetActive(ctx, domain.CategoryInternal, "Listing Ready for Review"); err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("underlying calls after invalidate = %d, want 2", next.calls)
	}
}

func TestCachedNotificationConfigRepoDoesNotCacheAbsence(t *testing.T) {
	t.Parallel()

	next := &fakeConfigRepo{}
	cache, mr := newTestCache(t, next)

	for i := 0; i < 2; i++ {
		_, err := cache.GetActive(context.Background(), domain.CategoryApplicant, "Missing")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetActive() error = %v, want ErrNotFound", err)
		}
	}
	if next.calls != 2 {
		t.Fatalf("underlying calls = %d, want 2", next.calls)
	}
	if mr.Exists(configCacheKey(domain.CategoryApplicant, "Missing")) {
		t.Fatal("absence should not be cached")
	}
}

func TestCachedNotificationConfigRepoFallsBackWhenRedisDown(t *testing.T) {
	t.Parallel()

	next := &fakeConfigRepo{
		getActiveFn: func(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error) {
			return &domain.NotificationConfig{CategoryCd: category, Title: title, Text: "x", Active: true}, nil
		},
	}
	cache, mr := newTestCache(t, next)
	mr.Close()

	cfg, err := cache.GetActive(context.Background(), domain.CategoryAgent, "Listing Published")
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if cfg.Title != "Listing Published" {
		t.Fatalf("GetActive() = %+v", cfg)
	}
}

func TestCachedNotificationConfigRepoDiscardsCorruptEntry(t *testing.T) {
	t.Parallel()

	next := &fakeConfigRepo{
		getActiveFn: func(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error) {
			return &domain.NotificationConfig{CategoryCd: category, Title: title, Text: "fresh", Active: true}, nil
		},
	}
	cache, mr := newTestCache(t, next)
	key := configCacheKey(domain.CategoryAgent, "Listing Published")
	if err := mr.Set(key, "{not json"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	cfg, err := cache.GetActive(context.Background(), domain.CategoryAgent, "Listing Published")
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if cfg.Text != "fresh" {
		t.Fatalf("GetActive() = %+v, want fresh config", cfg)
	}
}
