package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v58/github"
	"github.com/skiyl9x/ghsecret/internal/constants"
	apperrors "github.com/skiyl9x/ghsecret/internal/errors"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub Actions secrets API for a single repository
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

// Options configures how the client reaches and authenticates to the API
type Options struct {
	APIURL  string
	Login   string
	Token   string
	Auth    string
	Timeout time.Duration
}

// PublicKey is the repository key secrets must be sealed against.
// This is a local copy to avoid import cycles
type PublicKey struct {
	KeyID string
	Key   string
}

// NewClient creates a GitHub client for owner/repo
func NewClient(owner, repo string, opts Options) (*Client, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repository are required")
	}

	baseURL, err := parseBaseURL(opts.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	transport, err := newTransport(opts)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(&http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	})
	client.BaseURL = baseURL
	client.UserAgent = constants.UserAgent

	return &Client{
		client: client,
		owner:  owner,
		repo:   repo,
	}, nil
}

// newTransport picks basic auth (login + token) or a bearer token
func newTransport(opts Options) (http.RoundTripper, error) {
	switch opts.Auth {
	case "", constants.AuthBasic:
		return &github.BasicAuthTransport{
			Username: opts.Login,
			Password: opts.Token,
		}, nil
	case constants.AuthToken:
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		return &oauth2.Transport{Source: ts}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", opts.Auth)
	}
}

// parseBaseURL normalizes the API root; go-github needs a trailing slash
func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		raw = constants.DefaultAPIURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}

	return u, nil
}

// GetOwner returns the repository owner
func (c *Client) GetOwner() string {
	return c.owner
}

// GetRepo returns the repository name
func (c *Client) GetRepo() string {
	return c.repo
}

// GetPlatform returns "github"
func (c *Client) GetPlatform() string {
	return "github"
}

// BaseURL returns the API root requests are sent to
func (c *Client) BaseURL() string {
	return c.client.BaseURL.String()
}

// GetPublicKey fetches the repository public key used to seal secrets.
// The HTTP status is returned alongside the error; 0 means no response.
func (c *Client) GetPublicKey(ctx context.Context) (*PublicKey, int, error) {
	key, resp, err := c.client.Actions.GetRepoPublicKey(ctx, url.PathEscape(c.owner), url.PathEscape(c.repo))
	status := statusCode(resp)

	if err != nil {
		if status >= 200 && status < 300 {
			return nil, status, apperrors.Wrap(apperrors.ErrorTypeMalformedResponse, "public key response is not valid JSON", err)
		}
		return nil, status, fmt.Errorf("failed to get repository public key: %w", err)
	}

	if key.KeyID == nil {
		return nil, status, apperrors.MalformedResponse("key_id")
	}
	if key.Key == nil {
		return nil, status, apperrors.MalformedResponse("key")
	}

	return &PublicKey{
		KeyID: key.GetKeyID(),
		Key:   key.GetKey(),
	}, status, nil
}

// PutSecret creates or updates a repository secret with an already sealed value.
// 201 means created, 204 means updated.
func (c *Client) PutSecret(ctx context.Context, name, keyID, encryptedValue string) (int, error) {
	secret := &github.EncryptedSecret{
		Name:           url.PathEscape(name),
		KeyID:          keyID,
		EncryptedValue: encryptedValue,
	}

	resp, err := c.client.Actions.CreateOrUpdateRepoSecret(ctx, url.PathEscape(c.owner), url.PathEscape(c.repo), secret)
	status := statusCode(resp)
	if err != nil {
		return status, fmt.Errorf("failed to update secret: %w", err)
	}

	return status, nil
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
