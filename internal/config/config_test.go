package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != ":8084" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Database.Path != "finsight.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Default.Kind != "ollama" || cfg.Default.Model != "qwen2.5:7b" {
		t.Errorf("default provider = %+v", cfg.Default)
	}
	if cfg.Default.BaseURL != "http://localhost:11434" {
		t.Errorf("default base url = %q", cfg.Default.BaseURL)
	}
	if cfg.Encryption.Key != "" {
		t.Error("default encryption key must be unset")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = ":9000"
	cfg.Database.Path = "/tmp/test.db"
	cfg.Encryption.Key = "secret-key"
	cfg.Default.Kind = "anthropic"
	cfg.Default.Model = "claude-sonnet-4-5"
	cfg.Default.APIKey = "sk-ant-test"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.Addr != ":9000" {
		t.Errorf("addr = %q", loaded.Server.Addr)
	}
	if loaded.Database.Path != "/tmp/test.db" {
		t.Errorf("database path = %q", loaded.Database.Path)
	}
	if loaded.Encryption.Key != "secret-key" {
		t.Errorf("encryption key = %q", loaded.Encryption.Key)
	}
	if loaded.Default.Kind != "anthropic" || loaded.Default.APIKey != "sk-ant-test" {
		t.Errorf("default provider = %+v", loaded.Default)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":7777\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	// Unset keys fall back to defaults.
	if cfg.Database.Path != "finsight.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Default.Kind != "ollama" {
		t.Errorf("default kind = %q", cfg.Default.Kind)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromPathsFirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "config.local.yaml")
	second := filepath.Join(dir, "config.yaml")
	os.WriteFile(first, []byte("server:\n  addr: \":1111\"\n"), 0644)
	os.WriteFile(second, []byte("server:\n  addr: \":2222\"\n"), 0644)

	cfg, err := LoadFromPaths(first, second)
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if cfg.Server.Addr != ":1111" {
		t.Errorf("addr = %q, first existing path must win", cfg.Server.Addr)
	}
}

func TestLoadFromPathsAllMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir) // keep a real ~/.finsight/config.yaml out of the test

	cfg, err := LoadFromPaths(filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if cfg.Server.Addr != ":8084" || cfg.Default.Kind != "ollama" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}
