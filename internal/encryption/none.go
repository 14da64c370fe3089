package encryption

import "fieldlog/internal/fieldlog"

// NoneEncryptor stores payloads as-is. Useful on devices with full-disk
// encryption where a second layer buys nothing.
type NoneEncryptor struct{}

var _ fieldlog.Encryptor = (*NoneEncryptor)(nil)

// NewNoneEncryptor creates a new NoneEncryptor.
func NewNoneEncryptor() *NoneEncryptor {
	return &NoneEncryptor{}
}

func (e *NoneEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

func (e *NoneEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}
