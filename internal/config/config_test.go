package config

import (
	"testing"
	"time"

	"corkboard/internal/policy"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_ADDR", "DATABASE_URL", "POSTING_POLICY", "REQUIRE_EMAIL_VERIFICATION", "REDIS_URL", "CORKBOARD_BASE_URL"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Addr != ":8787" || cfg.DatabaseURL != "sqlite:corkboard.db" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.PostingPolicy != policy.ModeOpen || !cfg.RequireEmailVerification || cfg.RedisURL != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MaxUploadBytes != 16<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.MaxUploadBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTING_POLICY", "members-only")
	t.Setenv("REQUIRE_EMAIL_VERIFICATION", "false")
	t.Setenv("CORKBOARD_SESSION_TTL_SECONDS", "60")
	t.Setenv("CORKBOARD_BASE_URL", "https://forum.example.com/")
	t.Setenv("MEDIA_USE_SSL", "nope")
	t.Setenv("POST_INTERVAL_SECONDS", "abc")

	cfg := Load()
	if cfg.PostingPolicy != policy.ModeMembersOnly || cfg.RequireEmailVerification {
		t.Fatalf("unexpected policy settings %+v", cfg)
	}
	if cfg.SessionTTL != time.Minute {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.BaseURL != "https://forum.example.com" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if !cfg.MediaUseSSL || cfg.PostInterval != 10*time.Second {
		t.Fatalf("invalid values should fall back, got %+v", cfg)
	}
}

func TestUnknownPostingPolicyFailsClosed(t *testing.T) {
	t.Setenv("POSTING_POLICY", "membersonly")
	if cfg := Load(); cfg.PostingPolicy != policy.ModeMembersOnly {
		t.Fatalf("PostingPolicy = %q, want %q", cfg.PostingPolicy, policy.ModeMembersOnly)
	}
}
