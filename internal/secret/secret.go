// Package secret runs one secret update: read the plaintext file, fetch the
// repository public key, seal the value and submit it.
package secret

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"

	apperrors "github.com/skiyl9x/ghsecret/internal/errors"
	"github.com/skiyl9x/ghsecret/internal/remote"
	"github.com/skiyl9x/ghsecret/internal/seal"
)

// Outcome classifies the status of the secret submission
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeFailed  Outcome = "failed"
)

// OutcomeForStatus maps the submission status: 201 created, 204 updated,
// anything else failed.
func OutcomeForStatus(status int) Outcome {
	switch status {
	case http.StatusCreated:
		return OutcomeCreated
	case http.StatusNoContent:
		return OutcomeUpdated
	default:
		return OutcomeFailed
	}
}

// Result describes a completed submission
type Result struct {
	SecretName string  `json:"secret_name" yaml:"secret_name"`
	Repository string  `json:"repository" yaml:"repository"`
	KeyID      string  `json:"key_id" yaml:"key_id"`
	StatusCode int     `json:"status_code" yaml:"status_code"`
	Outcome    Outcome `json:"outcome" yaml:"outcome"`

	// Err is the classified API error of a rejected submission
	Err error `json:"-" yaml:"-"`
}

// Message is the one-line report printed for the result
func (r *Result) Message() string {
	switch r.Outcome {
	case OutcomeCreated:
		return "Secret has been created"
	case OutcomeUpdated:
		return "Secret has been updated"
	default:
		return fmt.Sprintf("Error with updating secret. Status code: %d", r.StatusCode)
	}
}

// Succeeded reports whether the platform accepted the secret
func (r *Result) Succeeded() bool {
	return r.Outcome != OutcomeFailed
}

// ReadPlaintext reads the secret file and removes every "\n".
// Other whitespace, including "\r", is kept.
func ReadPlaintext(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.FileUnreadable(path, err)
	}
	return bytes.ReplaceAll(data, []byte("\n"), nil), nil
}

// Sealer encrypts plaintext for a base64 public key and returns base64 ciphertext
type Sealer func(publicKey string, plaintext []byte) (string, error)

// Updater pushes secrets to one repository
type Updater struct {
	platform remote.Platform
	logger   *remote.Logger
	seal     Sealer
}

// Option customizes an Updater
type Option func(*Updater)

// WithLogger sets the logger used for operation logs
func WithLogger(logger *remote.Logger) Option {
	return func(u *Updater) { u.logger = logger }
}

// WithSealer replaces the sealed box implementation
func WithSealer(s Sealer) Option {
	return func(u *Updater) { u.seal = s }
}

// NewUpdater creates an Updater for the repository platform is bound to
func NewUpdater(platform remote.Platform, opts ...Option) *Updater {
	u := &Updater{
		platform: platform,
		logger:   remote.NopLogger(),
		seal:     seal.Seal,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Repository returns "owner/repo"
func (u *Updater) Repository() string {
	return u.platform.GetOwner() + "/" + u.platform.GetRepo()
}

// PublicKey fetches the repository public key
func (u *Updater) PublicKey(ctx context.Context) (*remote.PublicKey, error) {
	return u.platform.GetPublicKey(ctx)
}

// Update creates or updates secret name with the contents of filename.
//
// The file is read before any request is made. A rejected submission is
// not an error: it is reported through Result.Outcome. Errors are returned
// for unreadable files, key fetch failures, invalid keys and transport
// failures where no status was received.
func (u *Updater) Update(ctx context.Context, name, filename string) (*Result, error) {
	plaintext, err := ReadPlaintext(filename)
	if err != nil {
		return nil, err
	}
	u.logger.Debugf("read %d bytes from %s", len(plaintext), filename)

	key, err := u.PublicKey(ctx)
	if err != nil {
		return nil, err
	}

	encrypted, err := u.seal(key.Key, plaintext)
	if err != nil {
		return nil, err
	}

	status, err := u.platform.PutSecret(ctx, name, remote.SealedPayload{
		EncryptedValue: encrypted,
		KeyID:          key.KeyID,
	})
	if status == 0 {
		if err == nil {
			err = apperrors.NetworkError("secret update", fmt.Errorf("no response status"))
		}
		return nil, err
	}

	result := &Result{
		SecretName: name,
		Repository: u.Repository(),
		KeyID:      key.KeyID,
		StatusCode: status,
		Outcome:    OutcomeForStatus(status),
	}
	if !result.Succeeded() {
		result.Err = err
		u.logger.Errorf("%s rejected secret %s: %v", result.Repository, name, err)
	} else {
		u.logger.Infof("Secret %s %s in %s on %s", name, result.Outcome, result.Repository, u.platform.GetPlatform())
	}
	return result, nil
}
