package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.GatewayURL != defaultGatewayURL {
		t.Errorf("expected default gateway %q, got %q", defaultGatewayURL, cfg.GatewayURL)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if filepath.Base(cfg.Storage.DSN) != dbFileName {
		t.Errorf("expected sqlite DSN under config dir, got %q", cfg.Storage.DSN)
	}
	if cfg.Token != "" {
		t.Errorf("expected anonymous config, got token %q", cfg.Token)
	}
}

func TestLoad_GatewayFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(envKeyGateway, "https://chat.example.com/v1/chat")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.GatewayURL != "https://chat.example.com/v1/chat" {
		t.Errorf("expected gateway from env, got: %s", cfg.GatewayURL)
	}
}

func TestLoad_PostgresWithoutDSN_Fails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(envKeyDriver, "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for postgres without DSN")
	}
}

func TestSetToken_Persists(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := SetToken("abc.def.ghi"); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Token != "abc.def.ghi" {
		t.Errorf("expected saved token, got %q", cfg.Token)
	}

	info, err := os.Stat(configPath())
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestSetGateway_RejectsInvalidURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := SetGateway("not a url"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestKnowledge_AddAndRemove(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	AddKnowledge("first")
	AddKnowledge("second")
	AddKnowledge("third")

	if err := RemoveKnowledge(1); err != nil {
		t.Fatalf("RemoveKnowledge failed: %v", err)
	}

	cfg, _ := Load()
	if len(cfg.Knowledge) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cfg.Knowledge))
	}
	if cfg.Knowledge[0] != "first" || cfg.Knowledge[1] != "third" {
		t.Errorf("unexpected knowledge: %v", cfg.Knowledge)
	}

	if err := RemoveKnowledge(5); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestLoadGateway_Defaults(t *testing.T) {
	cfg, err := LoadGateway()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Addr != ":8787" {
		t.Errorf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.RatePerMinute != 30 {
		t.Errorf("expected default rate 30, got %d", cfg.RatePerMinute)
	}
	if cfg.AllowDevTokens {
		t.Error("dev tokens must be off by default")
	}
}
