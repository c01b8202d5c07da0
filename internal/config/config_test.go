package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(content), 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database-dsn: hotplate.db
jwt:
  secret: test-secret
`)
	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.Redemption.ProximityRadiusMeters != 100 {
		t.Fatalf("expected 100m default radius, got %f", cfg.Redemption.ProximityRadiusMeters)
	}
	if cfg.Redemption.RevealHold != 1200*time.Millisecond {
		t.Fatalf("expected 1.2s default reveal hold, got %s", cfg.Redemption.RevealHold)
	}
}

func TestLoadRejectsMissingDSN(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: test-secret
`)
	if _, errLoad := Load(path); errLoad == nil {
		t.Fatalf("expected error for missing database-dsn")
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("explicit.yaml"); got != "explicit.yaml" {
		t.Fatalf("expected explicit path, got %q", got)
	}
	t.Setenv("HOTPLATE_CONFIG", "/etc/hotplate/config.yaml")
	if got := ResolveConfigPath(""); got != "/etc/hotplate/config.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
	t.Setenv("HOTPLATE_CONFIG", "")
	if got := ResolveConfigPath(""); got != DefaultConfigPath {
		t.Fatalf("expected default path, got %q", got)
	}
}
