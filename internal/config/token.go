package config

import (
	"context"
	"fmt"

	apperrors "github.com/skiyl9x/ghsecret/internal/errors"
	"github.com/skiyl9x/ghsecret/internal/remote"
	"github.com/skiyl9x/ghsecret/internal/vault"
	"github.com/zalando/go-keyring"
)

// TokenSource records where the access token came from
type TokenSource string

const (
	SourceNone    TokenSource = ""
	SourceFlag    TokenSource = "flag"
	SourceVault   TokenSource = "vault"
	SourceKeyring TokenSource = "keyring"
)

// VaultReader reads a token field from a KV v2 secret
type VaultReader interface {
	Address() string
	IsReachable() bool
	GetToken(mount, path, field string) (string, error)
}

var _ VaultReader = (*vault.Client)(nil)

// TokenResolver looks the token up when it was not given directly.
// Order: --tk (flag, env or config file), then Vault, then the OS keyring.
type TokenResolver struct {
	NewVault   func(ctx context.Context, addr string) (VaultReader, error)
	KeyringGet func(service, user string) (string, error)
	Logger     *remote.Logger
}

// NewTokenResolver returns a resolver backed by the real Vault API and OS keyring
func NewTokenResolver(logger *remote.Logger) *TokenResolver {
	return &TokenResolver{
		NewVault: func(ctx context.Context, addr string) (VaultReader, error) {
			client, err := vault.NewClient(ctx, addr)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		KeyringGet: keyring.Get,
		Logger:     logger,
	}
}

// Resolve returns a copy of cfg with Token and TokenSource filled in
func (r *TokenResolver) Resolve(ctx context.Context, cfg Config) (Config, error) {
	logger := r.Logger
	if logger == nil {
		logger = remote.NopLogger()
	}

	if cfg.Token != "" {
		cfg.TokenSource = SourceFlag
		logger.LogTokenResolution(string(SourceFlag))
		return cfg, nil
	}

	var lastErr error

	if cfg.VaultPath != "" {
		token, err := r.fromVault(ctx, cfg)
		if err == nil {
			cfg.Token = token
			cfg.TokenSource = SourceVault
			logger.LogTokenResolution(string(SourceVault))
			return cfg, nil
		}
		logger.Debugf("vault lookup failed: %v", err)
		lastErr = err
	}

	if cfg.KeyringService != "" {
		token, err := r.KeyringGet(cfg.KeyringService, cfg.Login)
		if err == nil && token != "" {
			cfg.Token = token
			cfg.TokenSource = SourceKeyring
			logger.LogTokenResolution(string(SourceKeyring))
			return cfg, nil
		}
		if err == nil {
			err = fmt.Errorf("empty token for %s", cfg.Login)
		}
		logger.Debugf("keyring lookup failed: %v", err)
		lastErr = apperrors.TokenNotFound(string(SourceKeyring), err)
	}

	if lastErr != nil {
		return cfg, lastErr
	}
	return cfg, MissingParameters("--" + KeyToken)
}

func (r *TokenResolver) fromVault(ctx context.Context, cfg Config) (string, error) {
	client, err := r.NewVault(ctx, cfg.VaultAddr)
	if err != nil {
		return "", apperrors.VaultUnreachable(cfg.VaultAddr, err)
	}

	if !client.IsReachable() {
		return "", apperrors.VaultUnreachable(client.Address(), fmt.Errorf("health check failed"))
	}

	token, err := client.GetToken(cfg.VaultMount, cfg.VaultPath, cfg.VaultField)
	if err != nil {
		return "", apperrors.TokenNotFound(string(SourceVault), err)
	}
	return token, nil
}
