package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir changes the working directory for the duration of the test,
// matching t.Chdir from newer Go releases.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("port = %d, want 3000", cfg.Port)
	}
	if cfg.Mode != "release" {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.UploadLimit != 100<<20 {
		t.Fatalf("upload_limit = %d", cfg.UploadLimit)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Fatalf("ping_period = %v", cfg.PingPeriod)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", "test")

	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "mode: debug\nport: 9999\nupload_dir: /tmp/up\nping_period: 10s\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9999 || cfg.Mode != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.UploadDir != "/tmp/up" {
		t.Fatalf("upload_dir = %q", cfg.UploadDir)
	}
	if cfg.PingPeriod != 10*time.Second {
		t.Fatalf("ping_period = %v", cfg.PingPeriod)
	}
	// Unset keys still fall back to defaults.
	if cfg.StaticPath != "./web" {
		t.Fatalf("static_path = %q", cfg.StaticPath)
	}
}
