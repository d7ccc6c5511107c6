package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestSaveAndLookupSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, "ses_1", 42, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	accountID, err := store.LookupSession(ctx, "ses_1")
	if err != nil {
		t.Fatalf("LookupSession failed: %v", err)
	}
	if accountID != 42 {
		t.Errorf("expected account 42, got %d", accountID)
	}
	if !s.Exists("corkboard:session:ses_1") {
		t.Error("expected prefixed key in redis")
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, "ses_short", 7, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	s.FastForward(2 * time.Second)

	if _, err := store.LookupSession(ctx, "ses_short"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired session, got %v", err)
	}
}

func TestSaveSessionRejectsPastExpiry(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.SaveSession(context.Background(), "ses_old", 7, time.Now().Add(-time.Minute)); err == nil {
		t.Fatal("expected error for an expiry in the past")
	}
}

func TestRevokeSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, "ses_revoke", 9, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := store.RevokeSession(ctx, "ses_revoke"); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := store.LookupSession(ctx, "ses_revoke"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after revoke, got %v", err)
	}
	if err := store.RevokeSession(ctx, "ses_unknown"); err != nil {
		t.Errorf("revoking unknown session failed: %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	for id, account := range map[string]int64{"ses_a": 1, "ses_b": 2} {
		if err := store.SaveSession(ctx, id, account, expiresAt); err != nil {
			t.Fatalf("SaveSession(%s) failed: %v", id, err)
		}
	}
	if err := store.RevokeSession(ctx, "ses_a"); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := store.LookupSession(ctx, "ses_a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ses_a revoked, got %v", err)
	}
	accountID, err := store.LookupSession(ctx, "ses_b")
	if err != nil || accountID != 2 {
		t.Errorf("expected ses_b for account 2, got %d, %v", accountID, err)
	}
}

func TestLookupCorruptSession(t *testing.T) {
	store, s := setupTestRedis(t)
	if err := s.Set("corkboard:session:ses_bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := store.LookupSession(context.Background(), "ses_bad")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
