package config

import "testing"

func TestLoadRequiresSyncSettings(t *testing.T) {
	t.Setenv("SYNC_URL", "")
	t.Setenv("SYNC_SERVICE_ROLE_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when SYNC_URL is missing")
	}

	t.Setenv("SYNC_URL", "https://project.example.supa.co")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when SYNC_SERVICE_ROLE_KEY is missing")
	}

	t.Setenv("SYNC_SERVICE_ROLE_KEY", "service-key")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SyncURL != "https://project.example.supa.co" {
		t.Fatalf("unexpected sync url: %s", cfg.SyncURL)
	}
}

func TestLoadTrimsTrailingSlash(t *testing.T) {
	t.Setenv("SYNC_URL", "https://project.example.supa.co/")
	t.Setenv("SYNC_SERVICE_ROLE_KEY", "service-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.SyncURL != "https://project.example.supa.co" {
		t.Fatalf("trailing slash not trimmed: %s", cfg.SyncURL)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SYNC_URL", "https://project.example.supa.co")
	t.Setenv("SYNC_SERVICE_ROLE_KEY", "service-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.ServerPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Fatalf("expected default sslmode disable, got %s", cfg.DBSSLMode)
	}
	if cfg.SyncRetryIntervalSeconds != 60 {
		t.Fatalf("expected default retry interval 60, got %d", cfg.SyncRetryIntervalSeconds)
	}
}
