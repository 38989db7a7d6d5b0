package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mindping-core/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
api:
  host: 0.0.0.0
  port: 9000
  token: shell-secret
storage:
  type: memory
remote:
  base_url: https://directory.example.com
  ws_url: wss://directory.example.com/feed
  token: bearer-token
push:
  enabled: true
  key_path: /etc/keys/AuthKey.p8
  key_id: KEY123
  team_id: TEAM456
  topic: com.example.mindping
ping:
  cooldown: 30m
log:
  level: debug
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Addr() != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q", cfg.API.Addr())
	}
	if cfg.API.Token != "shell-secret" {
		t.Errorf("api token = %q", cfg.API.Token)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("storage type = %q", cfg.Storage.Type)
	}
	if cfg.Remote.BaseURL != "https://directory.example.com" {
		t.Errorf("base url = %q", cfg.Remote.BaseURL)
	}
	if !cfg.Push.Enabled || cfg.Push.KeyID != "KEY123" {
		t.Errorf("push config = %+v", cfg.Push)
	}
	if cfg.Ping.Cooldown != 30*time.Minute {
		t.Errorf("cooldown = %s, want 30m", cfg.Ping.Cooldown)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Addr() != "127.0.0.1:7411" {
		t.Errorf("default Addr() = %q", cfg.API.Addr())
	}
	if cfg.Storage.Path != "mindping.db" {
		t.Errorf("default storage path = %q", cfg.Storage.Path)
	}
	if cfg.Ping.Cooldown != 0 {
		t.Errorf("default cooldown = %s, want disabled", cfg.Ping.Cooldown)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
	if _, err := config.Load(writeConfig(t, "api: [not a map")); err == nil {
		t.Error("Load() should fail for malformed YAML")
	}
}
