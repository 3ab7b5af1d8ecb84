// Package seal implements anonymous public-key sealing of repository
// secrets (the libsodium crypto_box_seal construction).
//
// A sealed box is produced with a fresh ephemeral curve25519 key pair per
// call, so the same plaintext never yields the same ciphertext twice. Only
// the holder of the recipient's private key can open it, and the recipient
// learns nothing about the sender.
package seal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	apperrors "github.com/skiyl9x/ghsecret/internal/errors"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// KeySize is the length in bytes of a curve25519 public or private key.
const KeySize = 32

// Overhead is the number of bytes a sealed box adds to its plaintext.
const Overhead = box.AnonymousOverhead

// KeyPair is a curve25519 key pair able to open sealed boxes.
type KeyPair struct {
	Public  *[KeySize]byte
	Private *[KeySize]byte
}

// GenerateKeyPair creates a new random key pair
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &KeyPair{Public: pub, Private: priv}, nil
}

// PublicBase64 returns the public key in the encoding the GitHub API uses
func (k *KeyPair) PublicBase64() string {
	return base64.StdEncoding.EncodeToString(k.Public[:])
}

// Open decrypts a base64 sealed box with this key pair
func (k *KeyPair) Open(sealed string) ([]byte, error) {
	return Open(sealed, k.Public, k.Private)
}

// ParsePublicKey decodes a base64 public key and rejects keys that cannot
// be sealed against: bad encoding, wrong length, or low-order points.
func ParsePublicKey(encoded string) (*[KeySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.InvalidKey("not valid base64", err)
	}
	if len(raw) != KeySize {
		return nil, apperrors.InvalidKey(fmt.Sprintf("expected %d bytes, got %d", KeySize, len(raw)), nil)
	}

	var scalar [KeySize]byte
	if _, err := rand.Read(scalar[:]); err != nil {
		return nil, fmt.Errorf("failed to read random scalar: %w", err)
	}
	// X25519 refuses points whose shared secret would be all zeros.
	if _, err := curve25519.X25519(scalar[:], raw); err != nil {
		return nil, apperrors.InvalidKey("not a usable curve25519 point", err)
	}

	var key [KeySize]byte
	copy(key[:], raw)
	return &key, nil
}

// Seal encrypts plaintext for the holder of the base64 public key and
// returns the base64 ciphertext.
func Seal(publicKey string, plaintext []byte) (string, error) {
	key, err := ParsePublicKey(publicKey)
	if err != nil {
		return "", err
	}

	sealed, err := box.SealAnonymous(nil, plaintext, key, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to seal secret: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a base64 sealed box
func Open(sealed string, publicKey, privateKey *[KeySize]byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("sealed value is not valid base64: %w", err)
	}
	if len(raw) < Overhead {
		return nil, fmt.Errorf("sealed value too short: %d bytes", len(raw))
	}

	plaintext, ok := box.OpenAnonymous(nil, raw, publicKey, privateKey)
	if !ok {
		return nil, fmt.Errorf("failed to open sealed box")
	}
	return plaintext, nil
}
