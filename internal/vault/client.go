package vault

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
	"github.com/skiyl9x/ghsecret/internal/constants"
)

// Client wraps the Vault API client
type Client struct {
	client *vault.Client
	ctx    context.Context
}

// NewClient creates a new Vault client
// It uses environment variables for configuration:
// - VAULT_ADDR: Vault server address (overridden by a non-empty addr)
// - VAULT_TOKEN: Authentication token
func NewClient(ctx context.Context, addr string) (*Client, error) {
	config := vault.DefaultConfig()
	if config == nil {
		return nil, fmt.Errorf("failed to create default vault config")
	}
	if addr != "" {
		config.Address = addr
	}

	client, err := vault.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	return &Client{
		client: client,
		ctx:    ctx,
	}, nil
}

// Address returns the Vault server address in use
func (c *Client) Address() string {
	return c.client.Address()
}

// GetSecret retrieves a secret from a KV v2 mount
func (c *Client) GetSecret(mount, path string) (map[string]interface{}, error) {
	if mount == "" {
		mount = constants.DefaultVaultMount
	}

	secret, err := c.client.KVv2(mount).Get(c.ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret at %s/%s: %w", mount, path, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no data found at %s/%s", mount, path)
	}

	return secret.Data, nil
}

// IsReachable checks if Vault server is reachable
func (c *Client) IsReachable() bool {
	ctx, cancel := context.WithTimeout(c.ctx, constants.VaultHealthTimeout)
	defer cancel()

	_, err := c.client.Sys().HealthWithContext(ctx)
	return err == nil
}

// GetToken retrieves a platform access token stored in field of a KV v2 secret
func (c *Client) GetToken(mount, path, field string) (string, error) {
	if field == "" {
		field = constants.DefaultVaultField
	}

	data, err := c.GetSecret(mount, path)
	if err != nil {
		return "", err
	}

	token, ok := data[field].(string)
	if !ok {
		return "", fmt.Errorf("secret at %s is missing '%s' field", path, field)
	}
	if token == "" {
		return "", fmt.Errorf("'%s' field at %s is empty", field, path)
	}

	return token, nil
}
