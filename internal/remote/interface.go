// Package remote provides the platform-agnostic view of a hosting service's
// repository secrets API, plus the error classification and call logging
// shared by its implementations.
package remote

import "context"

// Platform defines what a hosting platform must offer to store an encrypted
// repository secret. One Platform value is bound to a single repository.
type Platform interface {
	// GetPublicKey fetches the key secrets must be sealed against
	GetPublicKey(ctx context.Context) (*PublicKey, error)

	// PutSecret stores a sealed value and returns the HTTP status.
	// A non-zero status is returned whenever the server answered, even with an error.
	PutSecret(ctx context.Context, name string, payload SealedPayload) (int, error)

	// Repository info
	GetOwner() string
	GetRepo() string
	GetPlatform() string // "github"
}

// PublicKey is a repository public key as served by the platform
type PublicKey struct {
	KeyID string
	Key   string
}

// SealedPayload is the content of a secret update. KeyID must name the key
// that produced EncryptedValue. The GitHub implementation sends it as
// go-github's EncryptedSecret ({"encrypted_value", "key_id"}).
type SealedPayload struct {
	EncryptedValue string
	KeyID          string
}
