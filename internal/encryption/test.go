package encryption

import (
	"bytes"
	"fmt"

	"fieldlog/internal/fieldlog"
)

// testHeader is prepended to data by TestEncryptor to make encrypted output
// clearly different from plaintext while remaining deterministic and reversible.
var testHeader = []byte("FLENC\x00\x00\x00")

// TestEncryptor is a simple, deterministic encryptor for testing.
// It prepends a fixed 8-byte header during encryption and strips it during
// decryption. This ensures encrypted output differs from plaintext while being
// trivially reversible and requiring no crypto.
type TestEncryptor struct{}

var _ fieldlog.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, 0, len(testHeader)+len(plaintext))
	out = append(out, testHeader...)
	out = append(out, plaintext...)
	return out, nil
}

func (e *TestEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < len(testHeader) || !bytes.Equal(ciphertext[:len(testHeader)], testHeader) {
		return nil, fmt.Errorf("invalid test encryption header")
	}
	return append([]byte(nil), ciphertext[len(testHeader):]...), nil
}
