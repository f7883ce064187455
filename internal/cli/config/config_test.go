package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setTestHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	return home
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	setTestHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Version != 1 || cfg.DefaultServer != "main" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, ok := cfg.Default(); ok {
		t.Fatalf("fresh config should have no default server")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	home := setTestHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.SetDefault("http://localhost:8080", "qna_ak_test")
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	path := filepath.Join(home, ".qna", "config.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	srv, ok := loaded.Default()
	if !ok {
		t.Fatalf("default server missing after reload")
	}
	if srv.URL != "http://localhost:8080" || srv.APIKey != "qna_ak_test" {
		t.Fatalf("unexpected server: %+v", srv)
	}
	if srv.ConnectedAt == "" {
		t.Fatalf("connected_at not recorded")
	}

	loaded.ClearDefault()
	if _, ok := loaded.Default(); ok {
		t.Fatalf("default server survived ClearDefault")
	}
}
