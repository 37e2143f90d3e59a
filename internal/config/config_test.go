package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("expected default upload limit %d, got %d", int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	}
	if cfg.MaxDimension != 0 {
		t.Fatalf("expected size clamp disabled by default, got %d", cfg.MaxDimension)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("REMBG_URL", "http://rembg:7000")
	t.Setenv("REMBG_TIMEOUT_SECONDS", "30")
	t.Setenv("MAX_DIMENSION", "2048")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes)
	}
	if cfg.RembgURL != "http://rembg:7000" {
		t.Fatalf("unexpected rembg url: %s", cfg.RembgURL)
	}
	if cfg.RembgTimeoutSecond != 30 {
		t.Fatalf("unexpected timeout: %d", cfg.RembgTimeoutSecond)
	}
	if cfg.MaxDimension != 2048 {
		t.Fatalf("unexpected max dimension: %d", cfg.MaxDimension)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg := Load()

	if cfg.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("expected fallback to default, got %d", cfg.MaxUploadBytes)
	}
}
