package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadBackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"listen": ":9090"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9090" {
		t.Fatalf("listen = %q", cfg.Listen)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Fatalf("read timeout = %v", cfg.ReadTimeout)
	}
	if cfg.Cache.Size != 1024 || cfg.Cache.TTL != 5*time.Minute {
		t.Fatalf("cache config = %+v", cfg.Cache)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadMissingPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed json")
	}
}
