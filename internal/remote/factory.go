package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/skiyl9x/ghsecret/internal/errors"
	"github.com/skiyl9x/ghsecret/internal/remote/github"
)

// Options describes the repository and credentials a Platform is bound to
type Options struct {
	APIURL  string
	Owner   string
	Repo    string
	Login   string
	Token   string
	Auth    string
	Timeout time.Duration

	Logger  *Logger
	Metrics *MetricsCollector
}

// githubClientWrapper adapts github.Client to Platform: it converts types,
// classifies HTTP failures and records every call.
type githubClientWrapper struct {
	*github.Client
	logger  *Logger
	metrics *MetricsCollector
}

// GetPublicKey wraps the github client method to convert types
func (w *githubClientWrapper) GetPublicKey(ctx context.Context) (*PublicKey, error) {
	var (
		key    *github.PublicKey
		status int
	)

	endpoint := fmt.Sprintf("repos/%s/%s/actions/secrets/public-key", w.GetOwner(), w.GetRepo())
	start := time.Now()
	err := w.logger.LogOperation("fetch repository public key", func() error {
		var err error
		key, status, err = w.Client.GetPublicKey(ctx)
		return err
	})
	w.record(http.MethodGet, endpoint, status, time.Since(start))

	switch {
	case status == 0:
		if err == nil {
			err = errors.New("no response")
		}
		return nil, apperrors.NetworkError("public key fetch", err)
	case status != http.StatusOK:
		return nil, ClassifyGitHubError(status, err)
	case err != nil:
		return nil, err
	}

	w.logger.Debugf("Using repository key %s", key.KeyID)
	return &PublicKey{KeyID: key.KeyID, Key: key.Key}, nil
}

// PutSecret wraps the github client method; any non-2xx status becomes an APIError
func (w *githubClientWrapper) PutSecret(ctx context.Context, name string, payload SealedPayload) (int, error) {
	var status int

	endpoint := fmt.Sprintf("repos/%s/%s/actions/secrets/%s", w.GetOwner(), w.GetRepo(), name)
	start := time.Now()
	err := w.logger.LogOperation("submit secret "+name, func() error {
		var err error
		status, err = w.Client.PutSecret(ctx, name, payload.KeyID, payload.EncryptedValue)
		return err
	})
	w.record(http.MethodPut, endpoint, status, time.Since(start))

	if status == 0 {
		if err == nil {
			err = errors.New("no response")
		}
		return 0, apperrors.NetworkError("secret submission", err)
	}
	if status < 200 || status >= 300 {
		return status, ClassifyGitHubError(status, err)
	}
	return status, nil
}

func (w *githubClientWrapper) record(method, endpoint string, status int, duration time.Duration) {
	w.logger.LogAPICall(method, endpoint, status, duration)
	if w.metrics != nil {
		w.metrics.RecordCall(status, duration)
	}
}

// NewClient creates the platform client that serves opts.APIURL.
// Only GitHub (github.com or an Enterprise/compatible host) is implemented.
func NewClient(opts Options) (Platform, error) {
	if opts.Logger == nil {
		opts.Logger = NopLogger()
	}

	platform := detectPlatform(opts.APIURL)

	switch platform {
	case "github":
		ghClient, err := github.NewClient(opts.Owner, opts.Repo, github.Options{
			APIURL:  opts.APIURL,
			Login:   opts.Login,
			Token:   opts.Token,
			Auth:    opts.Auth,
			Timeout: opts.Timeout,
		})
		if err != nil {
			return nil, err
		}
		opts.Logger.Debugf("GitHub API root: %s", ghClient.BaseURL())
		return &githubClientWrapper{Client: ghClient, logger: opts.Logger, metrics: opts.Metrics}, nil
	case "gitlab":
		return nil, fmt.Errorf("GitLab support not yet implemented")
	case "bitbucket":
		return nil, fmt.Errorf("Bitbucket support not yet implemented")
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}

// detectPlatform identifies the platform from the API root URL.
// Any host that is not a known non-GitHub service is treated as a GitHub
// Enterprise (or GitHub-compatible) endpoint.
func detectPlatform(apiURL string) string {
	host := apiURL
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)

	switch {
	case strings.Contains(host, "gitlab"):
		return "gitlab"
	case strings.Contains(host, "bitbucket.org"):
		return "bitbucket"
	default:
		return "github"
	}
}

// IsPlatformSupported checks if an API URL points to a supported platform
func IsPlatformSupported(apiURL string) bool {
	return detectPlatform(apiURL) == "github"
}
