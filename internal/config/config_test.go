package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("COLLATE_STORE", "")
	t.Setenv("COLLATE_AUTOSAVE_SECONDS", "")
	t.Setenv("MEILI_URL", "")

	cfg := FromEnv()
	if cfg.Store != "file" {
		t.Errorf("expected file store, got %q", cfg.Store)
	}
	if cfg.Autosave != 30*time.Second {
		t.Errorf("expected 30s autosave, got %s", cfg.Autosave)
	}
	if cfg.MeiliURL != "" {
		t.Errorf("expected meilisearch disabled, got %q", cfg.MeiliURL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("COLLATE_STORE", "SQLite")
	t.Setenv("COLLATE_AUTOSAVE_SECONDS", "5")
	t.Setenv("COLLATE_S3_USE_SSL", "true")
	t.Setenv("COLLATE_MAX_UPLOAD_BYTES", "not-a-number")

	cfg := FromEnv()
	if cfg.Store != "sqlite" {
		t.Errorf("expected sqlite store, got %q", cfg.Store)
	}
	if cfg.Autosave != 5*time.Second {
		t.Errorf("expected 5s autosave, got %s", cfg.Autosave)
	}
	if !cfg.S3UseSSL {
		t.Error("expected S3 SSL enabled")
	}
	if cfg.MaxUploadBytes != 32<<20 {
		t.Errorf("expected fallback upload limit, got %d", cfg.MaxUploadBytes)
	}
}
