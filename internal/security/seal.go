package security

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrDecrypt is returned when sealed data cannot be opened (wrong secret or tampered data).
var ErrDecrypt = errors.New("security: cannot decrypt sealed data")

const sealInfo = "savings-admin session file v1"

// Sealer encrypts small blobs (the persisted session) with XChaCha20-Poly1305 under a key
// derived from a configured secret via HKDF-SHA256.
type Sealer struct {
	key []byte
}

// NewSealer derives the encryption key from secret. secret must be non-empty.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("security: empty secret")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return &Sealer{key: key}, nil
}

// Seal returns nonce||ciphertext for plaintext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. Returns ErrDecrypt on authentication failure.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrDecrypt
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	out, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return out, nil
}
