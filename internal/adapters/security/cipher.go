package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/seido-app/courier/internal/domain"
	"golang.org/x/crypto/chacha20poly1305"
)

// CredentialCipher seals mailbox credentials with XChaCha20-Poly1305. The
// nonce is prepended to the ciphertext; any tampering or a wrong key opens
// as domain.ErrDecryptionFailed.
type CredentialCipher struct {
	key []byte
}

// NewCredentialCipher takes the base64-encoded 32-byte key from config.
func NewCredentialCipher(encodedKey string) (*CredentialCipher, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode credential key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credential key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &CredentialCipher{key: key}, nil
}

func (c *CredentialCipher) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *CredentialCipher) Open(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, domain.ErrDecryptionFailed
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	return plaintext, nil
}
