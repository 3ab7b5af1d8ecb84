package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/skiyl9x/ghsecret/internal/config"
	"github.com/skiyl9x/ghsecret/internal/constants"
	apperrors "github.com/skiyl9x/ghsecret/internal/errors"
	"github.com/skiyl9x/ghsecret/internal/remote"
	"github.com/skiyl9x/ghsecret/internal/secret"
	"github.com/skiyl9x/ghsecret/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app holds the state of one invocation
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfg     config.Config
	out     *ui.Output
	logger  *remote.Logger
	metrics *remote.MetricsCollector

	started bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:  stdout,
		stderr:  stderr,
		logger:  remote.NopLogger(),
		metrics: remote.NewMetricsCollector(),
	}
}

// output returns the configured Output, or a plain one before configuration
func (a *app) output() *ui.Output {
	if a.out == nil {
		return ui.NewOutput(a.stdout, a.stderr, ui.FormatPlain, true)
	}
	return a.out
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   constants.AppName + " --lg=LOGIN --tk=TOKEN --sn=NAME --repo=REPO --filename=FILE",
		Short: "Create or update a GitHub Actions repository secret",
		Long: `ghsecret encrypts the contents of a file with the repository's public key
and stores it as a GitHub Actions secret.

Every "\n" in the file is removed before encryption; other whitespace is kept.

` + usageLine,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpdate(cmd.Context())
		},
	}

	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return apperrors.Wrap(apperrors.ErrorTypeUsage, "invalid arguments", err)
	})

	config.AddPersistentFlags(cmd.PersistentFlags())
	config.AddUpdateFlags(cmd.Flags())

	cmd.AddCommand(newPublicKeyCmd(a))

	return cmd
}

// configure loads configuration from the parsed flags, env and config file
func (a *app) configure(flags *pflag.FlagSet) error {
	a.started = true

	v, err := config.NewViper(flags)
	if err != nil {
		return err
	}

	a.cfg = config.Load(v)
	a.out = ui.NewOutput(a.stdout, a.stderr, ui.OutputFormat(a.cfg.Format), a.cfg.NoColor)
	a.logger = remote.NewLogger(a.stderr, a.cfg.Verbose, a.cfg.Debug)
	return nil
}

// prepare validates the configuration, resolves the token and connects
func (a *app) prepare(ctx context.Context, mode config.Mode) (*secret.Updater, error) {
	if err := a.cfg.Validate(mode); err != nil {
		return nil, err
	}

	cfg, err := config.NewTokenResolver(a.logger).Resolve(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg

	platform, err := remote.NewClient(remote.Options{
		APIURL:  cfg.APIURL,
		Owner:   cfg.Owner(),
		Repo:    cfg.Repository,
		Login:   cfg.Login,
		Token:   cfg.Token,
		Auth:    cfg.Auth,
		Timeout: cfg.Timeout,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfig, "failed to create API client", err)
	}

	return secret.NewUpdater(platform, secret.WithLogger(a.logger)), nil
}

// keyFetchFailed reports an API error from the public key request
func (a *app) keyFetchFailed(err error) error {
	status := remote.StatusCode(err)
	if status == 0 {
		return err
	}
	if perr := a.out.KeyFetchError(status); perr != nil {
		return perr
	}
	a.out.Hint(apiHint(err))
	a.logger.Debugf("public key request failed: %v", err)
	return &reportedError{code: exitUsage, err: err}
}

func (a *app) runUpdate(ctx context.Context) error {
	defer a.reportMetrics()

	updater, err := a.prepare(ctx, config.ModeUpdate)
	if err != nil {
		return err
	}
	a.logger.Infof("Updating secret %s in %s (token from %s)", a.cfg.SecretName, updater.Repository(), a.cfg.TokenSource)

	stop := a.out.Progress(fmt.Sprintf("Updating secret %s...", a.cfg.SecretName))
	res, err := updater.Update(ctx, a.cfg.SecretName, a.cfg.Filename)
	stop()
	if err != nil {
		return a.keyFetchFailed(err)
	}

	if err := a.out.Result(res); err != nil {
		return err
	}
	if !res.Succeeded() {
		a.out.Hint(apiHint(res.Err))
	}

	if !res.Succeeded() && a.cfg.FailOnError {
		return &reportedError{code: exitFailure, err: fmt.Errorf("secret rejected with status %d", res.StatusCode)}
	}
	return nil
}

func (a *app) reportMetrics() {
	if a.logger.Enabled() && a.metrics.TotalCalls > 0 {
		a.logger.Debug(a.metrics.Report())
	}
}

// apiHint suggests what to check after the API refused a request
func apiHint(err error) string {
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) {
		return ""
	}

	switch {
	case remote.IsAuthError(err):
		return apiErr.Message + " Check --lg and --tk, or the token stored in Vault or the keyring."
	case remote.IsPermissionError(err):
		return apiErr.Message + " Classic tokens need the repo scope; fine-grained tokens need Secrets: write."
	case remote.IsRetryable(err):
		return apiErr.Message + " Try again later."
	default:
		return apiErr.Message
	}
}
