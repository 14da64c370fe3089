package encryption

import (
	"fmt"

	"fieldlog/internal/config"
	"fieldlog/internal/fieldlog"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// An age encryptor with no keys on disk generates a pair on first use.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (fieldlog.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		enc := NewAgeEncryptor(cfg)
		if !enc.IsConfigured() {
			if err := enc.Setup(); err != nil {
				return nil, fmt.Errorf("generating queue encryption keys: %w", err)
			}
		}
		return enc, nil
	case "none":
		return NewNoneEncryptor(), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
