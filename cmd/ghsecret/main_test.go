package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skiyl9x/ghsecret/internal/testutil/fakegithub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const (
	testLogin = "octocat"
	testToken = "ghp_test"
	testRepo  = "hello-world"
)

// clearEnv blanks every GHSECRET_* variable of the calling shell
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if key, _, _ := strings.Cut(kv, "="); strings.HasPrefix(key, "GHSECRET_") {
			t.Setenv(key, "")
		}
	}
}

// runCLI runs the command with an isolated environment
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	return runCLIWithEnv(t, nil, args...)
}

// runCLIWithEnv runs the command with only env set among GHSECRET_* variables
func runCLIWithEnv(t *testing.T, env map[string]string, args ...string) (int, string, string) {
	t.Helper()
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for key, value := range env {
		t.Setenv(key, value)
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeSecretFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func updateArgs(srv *fakegithub.Server, filename string, extra ...string) []string {
	args := []string{
		"--api-url=" + srv.APIURL(),
		"--lg=" + testLogin,
		"--tk=" + testToken,
		"--sn=DEPLOY_KEY",
		"--repo=" + testRepo,
		"--filename=" + filename,
	}
	return append(args, extra...)
}

func TestRun_ShellEnvironmentIsIgnored(t *testing.T) {
	t.Setenv("GHSECRET_TK", "token-from-developer-shell")
	t.Setenv("GHSECRET_LG", "someone-else")

	code, stdout, _ := runCLI(t, "--sn=X", "--repo="+testRepo, "--filename=f")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stdout, "--lg, --tk")
}

func TestRun_MissingParametersMakesNoRequest(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken)

	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"only login", []string{"--lg=" + testLogin}},
		{"no filename", []string{"--lg=" + testLogin, "--tk=" + testToken, "--sn=X", "--repo=" + testRepo}},
		{"no token", []string{"--lg=" + testLogin, "--sn=X", "--repo=" + testRepo, "--filename=f"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--api-url=" + srv.APIURL()}, tt.args...)
			code, stdout, _ := runCLI(t, args...)

			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stdout, "You must set all parameters!")
			assert.Contains(t, stdout, usageLine)
		})
	}
	assert.Empty(t, srv.Requests())
}

func TestRun_Help(t *testing.T) {
	code, stdout, _ := runCLI(t, "-h")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, usageLine)
	assert.Contains(t, stdout, "--filename")
}

func TestRun_BadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"bad duration", []string{"--timeout=soon"}},
		{"positional argument", []string{"extra"}},
		{"bad format", []string{"--lg=a", "--tk=b", "--sn=c", "--repo=d", "--filename=e", "--format=xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stdout, usageLine)
		})
	}
}

func TestRun_Update(t *testing.T) {
	tests := []struct {
		name       string
		opts       []fakegithub.Option
		extra      []string
		wantCode   int
		wantStdout string
	}{
		{
			name:       "created",
			wantCode:   exitOK,
			wantStdout: "Secret has been created\n",
		},
		{
			name:       "updated",
			opts:       []fakegithub.Option{fakegithub.WithExistingSecret("DEPLOY_KEY")},
			wantCode:   exitOK,
			wantStdout: "Secret has been updated\n",
		},
		{
			name:       "rejected",
			opts:       []fakegithub.Option{fakegithub.WithSecretStatus(http.StatusForbidden)},
			wantCode:   exitOK,
			wantStdout: "Error with updating secret. Status code: 403\n",
		},
		{
			name:       "rejected with fail-on-error",
			opts:       []fakegithub.Option{fakegithub.WithSecretStatus(http.StatusForbidden)},
			extra:      []string{"--fail-on-error"},
			wantCode:   exitFailure,
			wantStdout: "Error with updating secret. Status code: 403\n",
		},
		{
			name:       "bearer auth",
			opts:       []fakegithub.Option{fakegithub.WithBearerAuth()},
			extra:      []string{"--auth=token"},
			wantCode:   exitOK,
			wantStdout: "Secret has been created\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakegithub.New(t, testLogin, testToken, tt.opts...)

			code, stdout, _ := runCLI(t, updateArgs(srv, writeSecretFile(t, "hello\nworld\n"), tt.extra...)...)

			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStdout, stdout)

			reqs := srv.Requests()
			require.Len(t, reqs, 2)
			assert.Equal(t, http.MethodGet, reqs[0].Method)
			assert.Equal(t, "/repos/octocat/hello-world/actions/secrets/public-key", reqs[0].Path)
			assert.Equal(t, "application/vnd.github.v3+json", reqs[0].Accept)
			assert.Equal(t, http.MethodPut, reqs[1].Method)
			assert.Equal(t, "/repos/octocat/hello-world/actions/secrets/DEPLOY_KEY", reqs[1].Path)

			var body map[string]string
			require.NoError(t, json.Unmarshal(reqs[1].Body, &body))
			assert.Len(t, body, 2)
			assert.Equal(t, srv.KeyID, body["key_id"])
			assert.NotEmpty(t, body["encrypted_value"])
		})
	}
}

func TestRun_UpdateStoresStrippedValue(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken)

	code, _, _ := runCLI(t, updateArgs(srv, writeSecretFile(t, "hello\nworld\n"))...)
	require.Equal(t, exitOK, code)

	stored, ok := srv.Secret("DEPLOY_KEY")
	require.True(t, ok)
	assert.Equal(t, "helloworld", stored)
}

func TestRun_KeyFetchError(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		srv := fakegithub.New(t, testLogin, testToken, fakegithub.WithPublicKeyStatus(status))

		code, stdout, _ := runCLI(t, updateArgs(srv, writeSecretFile(t, "v"))...)

		assert.Equal(t, exitUsage, code)
		assert.Equal(t, fmt.Sprintf("Error with API request for get public key. Status code: %d\n", status), stdout)
		assert.Len(t, srv.Requests(), 1, "no submission after a failed key fetch")
	}
}

func TestRun_BadCredentials(t *testing.T) {
	srv := fakegithub.New(t, testLogin, "the-real-token")

	code, stdout, _ := runCLI(t, updateArgs(srv, writeSecretFile(t, "v"))...)
	assert.Equal(t, exitUsage, code)
	assert.Equal(t, "Error with API request for get public key. Status code: 401\n", stdout)
}

func TestRun_MalformedKeyResponse(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken, fakegithub.WithoutField("key"))

	code, stdout, stderr := runCLI(t, updateArgs(srv, writeSecretFile(t, "v"))...)
	assert.Equal(t, exitFailure, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "missing field 'key'")
	assert.Len(t, srv.Requests(), 1)
}

func TestRun_UnreadableFileMakesNoRequest(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken)

	code, _, stderr := runCLI(t, updateArgs(srv, filepath.Join(t.TempDir(), "missing.txt"))...)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "cannot read secret file")
	assert.Empty(t, srv.Requests())
}

func TestRun_ServerDown(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken)
	args := updateArgs(srv, writeSecretFile(t, "v"), "--timeout=2s")
	srv.Close()

	code, _, stderr := runCLI(t, args...)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Network error")
}

func TestRun_JSONOutput(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken)

	code, stdout, _ := runCLI(t, updateArgs(srv, writeSecretFile(t, "v"), "--format=json")...)
	require.Equal(t, exitOK, code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "created", doc["outcome"])
	assert.Equal(t, "octocat/hello-world", doc["repository"])
	assert.Equal(t, srv.KeyID, doc["key_id"])
}

func TestRun_EnvironmentConfig(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken)
	env := map[string]string{
		"GHSECRET_TK":      testToken,
		"GHSECRET_API_URL": srv.APIURL(),
	}

	code, stdout, _ := runCLIWithEnv(t, env,
		"--lg="+testLogin, "--sn=DEPLOY_KEY", "--repo="+testRepo,
		"--filename="+writeSecretFile(t, "v"),
	)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "Secret has been created\n", stdout)
}

func TestRun_KeyringToken(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("ghsecret-test", testLogin, testToken))
	srv := fakegithub.New(t, testLogin, testToken)

	code, stdout, stderr := runCLI(t,
		"--api-url="+srv.APIURL(), "--lg="+testLogin, "--keyring-service=ghsecret-test",
		"--sn=DEPLOY_KEY", "--repo="+testRepo, "--filename="+writeSecretFile(t, "v"), "-v",
	)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "Secret has been created\n", stdout)
	assert.Contains(t, stderr, "source=keyring")
	assert.NotContains(t, stderr, testToken)
}

func TestRun_DebugReportsMetrics(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken)

	code, _, stderr := runCLI(t, updateArgs(srv, writeSecretFile(t, "v"), "--debug")...)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "API Metrics")
	assert.Contains(t, stderr, "Total calls: 2")
}

func TestRun_PublicKey(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken)

	code, stdout, _ := runCLI(t, "public-key",
		"--api-url="+srv.APIURL(), "--lg="+testLogin, "--tk="+testToken, "--repo="+testRepo,
	)
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "key_id: "+srv.KeyID+"\nkey: "+srv.Keys.PublicBase64()+"\n", stdout)
	require.Len(t, srv.Requests(), 1)
}

func TestRun_PublicKeyMissingRepo(t *testing.T) {
	code, stdout, _ := runCLI(t, "public-key", "--lg="+testLogin, "--tk="+testToken)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stdout, "--repo")
}

func TestRun_KeyFetchHints(t *testing.T) {
	tests := []struct {
		name     string
		opts     []fakegithub.Option
		token    string
		status   int
		wantHint string
	}{
		{name: "bad credentials", token: "wrong", status: 401, wantHint: "Check --lg and --tk"},
		{name: "forbidden", opts: []fakegithub.Option{fakegithub.WithPublicKeyStatus(http.StatusForbidden)}, status: 403, wantHint: "Secrets: write"},
		{name: "server error", opts: []fakegithub.Option{fakegithub.WithPublicKeyStatus(http.StatusBadGateway)}, status: 502, wantHint: "Try again later"},
		{name: "not found", opts: []fakegithub.Option{fakegithub.WithPublicKeyStatus(http.StatusNotFound)}, status: 404, wantHint: "Check repository name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakegithub.New(t, testLogin, testToken, tt.opts...)
			args := updateArgs(srv, writeSecretFile(t, "v"))
			if tt.token != "" {
				args = append(args, "--tk="+tt.token)
			}

			code, stdout, stderr := runCLI(t, args...)
			assert.Equal(t, exitUsage, code)
			assert.Equal(t, fmt.Sprintf("Error with API request for get public key. Status code: %d\n", tt.status), stdout)
			assert.Contains(t, stderr, "hint: ")
			assert.Contains(t, stderr, tt.wantHint)
		})
	}
}

func TestRun_RejectedSubmissionHints(t *testing.T) {
	tests := []struct {
		status   int
		wantHint string
	}{
		{http.StatusForbidden, "Insufficient permissions"},
		{http.StatusInternalServerError, "Try again later"},
		{http.StatusUnauthorized, "Invalid login or token."},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := fakegithub.New(t, testLogin, testToken, fakegithub.WithSecretStatus(tt.status))

			code, stdout, stderr := runCLI(t, updateArgs(srv, writeSecretFile(t, "v"))...)
			assert.Equal(t, exitOK, code)
			assert.Equal(t, fmt.Sprintf("Error with updating secret. Status code: %d\n", tt.status), stdout)
			assert.Contains(t, stderr, tt.wantHint)
		})
	}
}

func TestRun_StructuredOutputHasNoHints(t *testing.T) {
	srv := fakegithub.New(t, testLogin, testToken, fakegithub.WithSecretStatus(http.StatusForbidden))

	code, stdout, stderr := runCLI(t, updateArgs(srv, writeSecretFile(t, "v"), "--format=json")...)
	assert.Equal(t, exitOK, code)
	assert.NotContains(t, stderr, "hint:")

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "failed", doc["outcome"])
	assert.NotContains(t, doc, "Err")
}

func TestRun_OtherPlatformAPIURL(t *testing.T) {
	code, stdout, stderr := runCLI(t,
		"--api-url=https://gitlab.com/api/v4", "--lg="+testLogin, "--tk="+testToken,
		"--sn=DEPLOY_KEY", "--repo="+testRepo, "--filename="+writeSecretFile(t, "v"),
	)
	assert.Equal(t, exitFailure, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Invalid configuration for 'api-url'")
}
