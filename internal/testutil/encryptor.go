package testutil

import (
	"fieldlog/internal/encryption"
	"fieldlog/internal/fieldlog"
)

// NewTestEncryptor creates a new deterministic encryptor for testing.
func NewTestEncryptor() fieldlog.Encryptor {
	return encryption.NewTestEncryptor()
}
