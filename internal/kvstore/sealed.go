package kvstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gtank/cryptopasta"
)

// Sealed encrypts values before handing them to the wrapped store and
// checks their HMAC on the way back. Keys are stored in clear.
type Sealed struct {
	inner   Store
	encKey  *[32]byte
	signKey *[32]byte
}

// NewSealed wraps inner. Both secrets must be at least 32 bytes; only the
// first 32 are used.
func NewSealed(inner Store, encryptionKey, signingKey string) (*Sealed, error) {
	enc, err := toKey(encryptionKey)
	if err != nil {
		return nil, err
	}
	sig, err := toKey(signingKey)
	if err != nil {
		return nil, err
	}
	return &Sealed{inner: inner, encKey: enc, signKey: sig}, nil
}

func (s *Sealed) Get(ctx context.Context, key string) (string, bool, error) {
	encoded, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plain, err := s.open(encoded)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return string(plain), true, nil
}

func (s *Sealed) Set(ctx context.Context, key, value string) error {
	sealed, err := s.seal([]byte(value))
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *Sealed) Close() error { return s.inner.Close() }

// seal encrypts and base64 encodes the plaintext, then appends an HMAC of
// the ciphertext: "<cipher>.<signature>".
func (s *Sealed) seal(plaintext []byte) (string, error) {
	ciphertext, err := cryptopasta.Encrypt(plaintext, s.encKey)
	if err != nil {
		return "", err
	}
	signature := cryptopasta.GenerateHMAC(ciphertext, s.signKey)
	return base64.RawURLEncoding.EncodeToString(ciphertext) + "." +
		base64.RawURLEncoding.EncodeToString(signature), nil
}

func (s *Sealed) open(encoded string) ([]byte, error) {
	bits := strings.SplitN(encoded, ".", 2)
	if len(bits) != 2 {
		return nil, fmt.Errorf("encoded value has no signature")
	}
	ciphertext, err := base64.RawURLEncoding.DecodeString(bits[0])
	if err != nil {
		return nil, err
	}
	signature, err := base64.RawURLEncoding.DecodeString(bits[1])
	if err != nil {
		return nil, err
	}
	if !cryptopasta.CheckHMAC(ciphertext, signature, s.signKey) {
		return nil, fmt.Errorf("signature validation failed")
	}
	return cryptopasta.Decrypt(ciphertext, s.encKey)
}

func toKey(s string) (*[32]byte, error) {
	if len(s) < 32 {
		return nil, ErrKeyTooShort
	}
	key := &[32]byte{}
	copy(key[:], s)
	return key, nil
}
