package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for fieldlog.
type Config struct {
	DeviceID string `toml:"device_id"`
	BaseDir  string `toml:"base_dir"`
	LogDir   string `toml:"log_dir"`

	Remote       RemoteConfig       `toml:"remote"`
	Queue        QueueConfig        `toml:"queue"`
	Encryption   EncryptionConfig   `toml:"encryption"`
	Connectivity ConnectivityConfig `toml:"connectivity"`
}

// RemoteConfig holds the remote store endpoint and credentials.
type RemoteConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	AccessToken    string `toml:"access_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"` // per-request bound; defaults to 30
}

// QueueConfig represents configuration for the durable local queue.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type QueueConfig struct {
	Type       string `toml:"type"`               // "sqlite" (default) or "memory"
	DataDir    string `toml:"data_dir,omitempty"` // only used for type=sqlite
	MaxEntries int    `toml:"max_entries"`        // 0 means unlimited
}

// EncryptionConfig controls at-rest encryption of queued payloads.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type EncryptionConfig struct {
	Type          string `toml:"type"` // "age" (default), "none", or "test"
	RecipientPath string `toml:"recipient_path,omitempty"`
	IdentityPath  string `toml:"identity_path,omitempty"`
}

// ConnectivityConfig tunes the reachability monitor.
type ConnectivityConfig struct {
	HealthPath  string `toml:"health_path"`  // probed relative to remote base_url
	PollSeconds int    `toml:"poll_seconds"` // defaults to 15
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(deviceID, baseDir string) *Config {
	return &Config{
		DeviceID: deviceID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Queue: QueueConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Encryption: EncryptionConfig{
			Type:          "age",
			RecipientPath: filepath.Join(baseDir, "keys", "queue.pub"),
			IdentityPath:  filepath.Join(baseDir, "keys", "queue.key"),
		},
		Connectivity: ConnectivityConfig{
			HealthPath:  "/auth/v1/health",
			PollSeconds: 15,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
