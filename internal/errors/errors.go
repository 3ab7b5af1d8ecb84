package errors

import (
	"errors"
	"fmt"
)

// Error types for better error handling
type ErrorType string

const (
	ErrorTypeUsage             ErrorType = "usage"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeInvalidKey        ErrorType = "invalid_key"
	ErrorTypeFile              ErrorType = "file"
	ErrorTypeNetwork           ErrorType = "network"
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeVault             ErrorType = "vault"
	ErrorTypeKeyring           ErrorType = "keyring"
)

// SecretError represents a structured error with context
type SecretError struct {
	Type    ErrorType
	Message string
	Hint    string
	Err     error
}

func (e *SecretError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *SecretError) Unwrap() error {
	return e.Err
}

// New creates a new SecretError
func New(errType ErrorType, message string) *SecretError {
	return &SecretError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an existing error with context
func Wrap(errType ErrorType, message string, err error) *SecretError {
	return &SecretError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// WithHint adds a hint to an error
func WithHint(err *SecretError, hint string) *SecretError {
	err.Hint = hint
	return err
}

// Is reports whether any error in err's chain is a SecretError of the given type.
func Is(err error, errType ErrorType) bool {
	var se *SecretError
	if errors.As(err, &se) {
		return se.Type == errType
	}
	return false
}

// Common error constructors

func Usage(message string) *SecretError {
	return New(ErrorTypeUsage, message)
}

func MalformedResponse(field string) *SecretError {
	return WithHint(
		New(ErrorTypeMalformedResponse, fmt.Sprintf("public key response is missing field '%s'", field)),
		"The API answered 200 without a usable key. Check that --api-url points at a GitHub REST endpoint.",
	)
}

func InvalidKey(reason string, err error) *SecretError {
	return Wrap(ErrorTypeInvalidKey, fmt.Sprintf("repository public key is invalid: %s", reason), err)
}

func FileUnreadable(path string, err error) *SecretError {
	return WithHint(
		Wrap(ErrorTypeFile, fmt.Sprintf("cannot read secret file %s", path), err),
		"Check that the --filename path exists and is readable.",
	)
}

func NetworkError(operation string, err error) *SecretError {
	return WithHint(
		Wrap(ErrorTypeNetwork, fmt.Sprintf("Network error during %s", operation), err),
		"Check your internet connection. If the problem persists, the remote server may be down.",
	)
}

func InvalidConfiguration(key, reason string) *SecretError {
	return WithHint(
		New(ErrorTypeConfig, fmt.Sprintf("Invalid configuration for '%s': %s", key, reason)),
		"Check the flag value, the GHSECRET_* environment and the config file.",
	)
}

func VaultUnreachable(addr string, err error) *SecretError {
	return WithHint(
		Wrap(ErrorTypeVault, fmt.Sprintf("Vault unreachable at %s", addr), err),
		"Check that Vault is running and VAULT_ADDR / VAULT_TOKEN are set.",
	)
}

func TokenNotFound(source string, err error) *SecretError {
	errType := ErrorTypeVault
	if source == "keyring" {
		errType = ErrorTypeKeyring
	}
	return WithHint(
		Wrap(errType, fmt.Sprintf("no access token found in %s", source), err),
		"Pass the token with --tk or store it where --vault-path / --keyring-service point.",
	)
}
