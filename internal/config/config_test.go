package config_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"fieldlog/internal/config"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig("device-1", "/data/fieldlog")

	if cfg.DeviceID != "device-1" {
		t.Errorf("DeviceID = %s", cfg.DeviceID)
	}
	if cfg.LogDir != filepath.Join("/data/fieldlog", "log") {
		t.Errorf("LogDir = %s", cfg.LogDir)
	}
	if cfg.Queue.Type != "sqlite" {
		t.Errorf("Queue.Type = %s, want sqlite", cfg.Queue.Type)
	}
	if cfg.Queue.DataDir != filepath.Join("/data/fieldlog", "data") {
		t.Errorf("Queue.DataDir = %s", cfg.Queue.DataDir)
	}
	if cfg.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %s, want age", cfg.Encryption.Type)
	}
	if cfg.Connectivity.HealthPath != "/auth/v1/health" {
		t.Errorf("Connectivity.HealthPath = %s", cfg.Connectivity.HealthPath)
	}
	if cfg.Connectivity.PollSeconds != 15 {
		t.Errorf("Connectivity.PollSeconds = %d, want 15", cfg.Connectivity.PollSeconds)
	}
}

func TestManager_RoundTrip(t *testing.T) {
	cfg := config.NewConfig("device-1", "/data/fieldlog")
	cfg.Remote = config.RemoteConfig{
		BaseURL:        "https://example.supabase.co",
		APIKey:         "anon-key",
		AccessToken:    "user-token",
		TimeoutSeconds: 10,
	}
	cfg.Queue.MaxEntries = 500

	m := &config.Manager{}

	var buf bytes.Buffer
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if *got != *cfg {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, cfg)
	}
}

func TestManager_ReadInvalid(t *testing.T) {
	m := &config.Manager{}
	if _, err := m.Read(strings.NewReader("queue = [not valid")); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "fieldlog.toml")
	cfg := config.NewConfig("device-1", "/data/fieldlog")

	if err := config.Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	got, err := config.ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.DeviceID != "device-1" {
		t.Errorf("DeviceID = %s", got.DeviceID)
	}

	// A second Init must refuse to overwrite.
	if err := config.Init(path, cfg); err == nil {
		t.Error("expected error when the config file already exists")
	}
}

func TestReadFromFile_Missing(t *testing.T) {
	if _, err := config.ReadFromFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for a missing config file")
	}
}
