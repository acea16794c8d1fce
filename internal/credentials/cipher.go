package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	keySalt = "fitsync/credentials/v1"
	keyInfo = "provider token encryption"
)

var ErrDecrypt = errors.New("failed to decrypt credential")

// sealer encrypts values at rest. The storage key is bound as associated
// data, so a ciphertext copied under another provider's key fails to open.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(passphrase string) (*sealer, error) {
	if passphrase == "" {
		return nil, errors.New("credential passphrase is empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(passphrase), []byte(keySalt), []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive credential key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &sealer{aead: aead}, nil
}

func (s *sealer) seal(storageKey string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(storageKey)), nil
}

func (s *sealer) open(storageKey string, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < s.aead.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, sealed := ciphertext[:s.aead.NonceSize()], ciphertext[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, sealed, []byte(storageKey))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
