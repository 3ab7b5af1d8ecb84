package constants

import "time"

// Application identity
const (
	AppName   = "ghsecret"
	EnvPrefix = "GHSECRET"
	UserAgent = AppName
)

// GitHub API
const (
	DefaultAPIURL = "https://api.github.com/"
	MediaTypeV3   = "application/vnd.github.v3+json"
)

// Auth modes
const (
	AuthBasic = "basic"
	AuthToken = "token"
)

// Vault defaults
const (
	DefaultVaultMount = "secret"
	DefaultVaultField = "token"
)

// Timeouts
const (
	DefaultRequestTimeout = 30 * time.Second
	VaultHealthTimeout    = 2 * time.Second
)
