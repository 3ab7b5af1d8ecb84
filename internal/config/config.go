package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skiyl9x/ghsecret/internal/constants"
	apperrors "github.com/skiyl9x/ghsecret/internal/errors"
	"github.com/skiyl9x/ghsecret/internal/remote"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys double as flag names, config file keys and (upper-cased, with the
// GHSECRET_ prefix) environment variable names.
const (
	KeyLogin          = "lg"
	KeyToken          = "tk"
	KeySecretName     = "sn"
	KeyRepository     = "repo"
	KeyFilename       = "filename"
	KeyConfig         = "config"
	KeyAPIURL         = "api-url"
	KeyAuth           = "auth"
	KeyTimeout        = "timeout"
	KeyFormat         = "format"
	KeyNoColor        = "no-color"
	KeyVerbose        = "verbose"
	KeyDebug          = "debug"
	KeyFailOnError    = "fail-on-error"
	KeyVaultAddr      = "vault-addr"
	KeyVaultPath      = "vault-path"
	KeyVaultMount     = "vault-mount"
	KeyVaultField     = "vault-field"
	KeyKeyringService = "keyring-service"
)

// Output formats
const (
	FormatPlain = "plain"
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Mode selects which values a command requires
type Mode int

const (
	// ModeUpdate needs all five values: login, token, secret name, repository, file
	ModeUpdate Mode = iota
	// ModePublicKey needs login, token and repository
	ModePublicKey
)

// Config is the resolved, read-only configuration of one invocation
type Config struct {
	Login      string
	Token      string
	SecretName string
	Repository string
	Filename   string

	APIURL  string
	Auth    string
	Timeout time.Duration

	Format      string
	NoColor     bool
	Verbose     bool
	Debug       bool
	FailOnError bool

	VaultAddr      string
	VaultPath      string
	VaultMount     string
	VaultField     string
	KeyringService string

	TokenSource TokenSource
}

// Owner is the account that owns the repository; it is the login
func (c Config) Owner() string {
	return c.Login
}

// HasTokenReference reports whether the token can be looked up elsewhere
func (c Config) HasTokenReference() bool {
	return c.VaultPath != "" || c.KeyringService != ""
}

// AddPersistentFlags registers the flags shared by every command
func AddPersistentFlags(fs *pflag.FlagSet) {
	fs.String(KeyLogin, "", "Account login on the hosting platform")
	fs.String(KeyToken, "", "Access token allowed to manage repository secrets")
	fs.String(KeyRepository, "", "Repository name")
	fs.String(KeyConfig, "", "Config file (default $XDG_CONFIG_HOME/ghsecret/config.yaml)")
	fs.String(KeyAPIURL, constants.DefaultAPIURL, "API root URL (GitHub Enterprise: https://HOST/api/v3/)")
	fs.String(KeyAuth, constants.AuthBasic, "Authentication: basic (login + token) or token (bearer)")
	fs.Duration(KeyTimeout, constants.DefaultRequestTimeout, "Timeout for each API request")
	fs.String(KeyFormat, FormatPlain, "Output format (plain|human|json|yaml)")
	fs.Bool(KeyNoColor, false, "Disable colored output")
	fs.BoolP(KeyVerbose, "v", false, "Log operations to stderr")
	fs.Bool(KeyDebug, false, "Log debug details to stderr")
	fs.String(KeyVaultAddr, "", "Vault address when the token is read from Vault (default $VAULT_ADDR)")
	fs.String(KeyVaultPath, "", "Vault KV v2 path holding the token, used when --tk is not set")
	fs.String(KeyVaultMount, constants.DefaultVaultMount, "Vault KV v2 mount")
	fs.String(KeyVaultField, constants.DefaultVaultField, "Field of the Vault secret that holds the token")
	fs.String(KeyKeyringService, "", "OS keyring service holding the token (account = login), used when --tk is not set")
}

// AddUpdateFlags registers the flags of the secret update command
func AddUpdateFlags(fs *pflag.FlagSet) {
	fs.String(KeySecretName, "", "Name of the secret to create or update")
	fs.String(KeyFilename, "", "File containing the plaintext secret")
	fs.Bool(KeyFailOnError, false, "Exit 1 when the API rejects the secret")
}

// NewViper layers flags, GHSECRET_* environment and the config file
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	return v, nil
}

// readConfigFile loads --config, or the default file when it exists
func readConfigFile(v *viper.Viper) error {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return apperrors.Wrap(apperrors.ErrorTypeConfig, fmt.Sprintf("failed to load config file %s", path), err)
		}
		return nil
	}

	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		dir = filepath.Join(home, ".config")
	}
	v.AddConfigPath(filepath.Join(dir, constants.AppName))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrorTypeConfig, "failed to load config file", err)
	}
	return nil
}

// Load builds a Config from v. Nothing is validated here.
func Load(v *viper.Viper) Config {
	return Config{
		Login:      v.GetString(KeyLogin),
		Token:      v.GetString(KeyToken),
		SecretName: v.GetString(KeySecretName),
		Repository: v.GetString(KeyRepository),
		Filename:   v.GetString(KeyFilename),

		APIURL:  v.GetString(KeyAPIURL),
		Auth:    strings.ToLower(v.GetString(KeyAuth)),
		Timeout: v.GetDuration(KeyTimeout),

		Format:      strings.ToLower(v.GetString(KeyFormat)),
		NoColor:     v.GetBool(KeyNoColor),
		Verbose:     v.GetBool(KeyVerbose),
		Debug:       v.GetBool(KeyDebug),
		FailOnError: v.GetBool(KeyFailOnError),

		VaultAddr:      v.GetString(KeyVaultAddr),
		VaultPath:      v.GetString(KeyVaultPath),
		VaultMount:     v.GetString(KeyVaultMount),
		VaultField:     v.GetString(KeyVaultField),
		KeyringService: v.GetString(KeyKeyringService),
	}
}

// Validate checks that everything mode needs is present and well formed.
// It never touches the network. Missing or malformed values are usage
// errors; an --api-url for another platform is a configuration error.
func (c Config) Validate(mode Mode) error {
	var missing []string
	if c.Login == "" {
		missing = append(missing, "--"+KeyLogin)
	}
	if c.Token == "" && !c.HasTokenReference() {
		missing = append(missing, "--"+KeyToken)
	}
	if mode == ModeUpdate && c.SecretName == "" {
		missing = append(missing, "--"+KeySecretName)
	}
	if c.Repository == "" {
		missing = append(missing, "--"+KeyRepository)
	}
	if mode == ModeUpdate && c.Filename == "" {
		missing = append(missing, "--"+KeyFilename)
	}
	if len(missing) > 0 {
		return MissingParameters(missing...)
	}

	switch c.Auth {
	case constants.AuthBasic, constants.AuthToken:
	default:
		return apperrors.Usage(fmt.Sprintf("invalid --%s %q (want %s or %s)", KeyAuth, c.Auth, constants.AuthBasic, constants.AuthToken))
	}

	switch c.Format {
	case FormatPlain, FormatHuman, FormatJSON, FormatYAML:
	default:
		return apperrors.Usage(fmt.Sprintf("invalid --%s %q (want plain, human, json or yaml)", KeyFormat, c.Format))
	}

	if c.Timeout < 0 {
		return apperrors.Usage(fmt.Sprintf("invalid --%s %s", KeyTimeout, c.Timeout))
	}

	if !remote.IsPlatformSupported(c.APIURL) {
		return apperrors.InvalidConfiguration(KeyAPIURL, fmt.Sprintf("%s is not a GitHub API endpoint", c.APIURL))
	}

	return nil
}

// MissingParameters is the usage error for absent required values
func MissingParameters(names ...string) error {
	return apperrors.Usage(fmt.Sprintf("You must set all parameters! (missing: %s)", strings.Join(names, ", ")))
}
