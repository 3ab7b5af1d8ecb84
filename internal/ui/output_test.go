package ui

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/skiyl9x/ghsecret/internal/remote"
	"github.com/skiyl9x/ghsecret/internal/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestOutput(format OutputFormat) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return NewOutput(&stdout, &stderr, format, false), &stdout, &stderr
}

func result(status int) *secret.Result {
	return &secret.Result{
		SecretName: "DEPLOY_KEY",
		Repository: "octocat/hello-world",
		KeyID:      "568250167242549743",
		StatusCode: status,
		Outcome:    secret.OutcomeForStatus(status),
	}
}

func TestResult_Plain(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{201, "Secret has been created\n"},
		{204, "Secret has been updated\n"},
		{403, "Error with updating secret. Status code: 403\n"},
	}

	for _, tt := range tests {
		out, stdout, stderr := newTestOutput(FormatPlain)
		require.NoError(t, out.Result(result(tt.status)))
		assert.Equal(t, tt.want, stdout.String())
		assert.Empty(t, stderr.String())
	}
}

func TestResult_Human(t *testing.T) {
	out, stdout, _ := newTestOutput(FormatHuman)
	require.NoError(t, out.Result(result(201)))
	assert.Equal(t, "✓ Secret has been created (DEPLOY_KEY in octocat/hello-world)\n", stdout.String())

	out, stdout, _ = newTestOutput(FormatHuman)
	require.NoError(t, out.Result(result(422)))
	assert.Contains(t, stdout.String(), "✗ Error with updating secret. Status code: 422")
}

func TestResult_JSON(t *testing.T) {
	out, stdout, _ := newTestOutput(FormatJSON)
	require.NoError(t, out.Result(result(204)))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, "success", doc["status"])
	assert.Equal(t, "Secret has been updated", doc["message"])
	assert.Equal(t, "updated", doc["outcome"])
	assert.Equal(t, float64(204), doc["status_code"])
	assert.Equal(t, "DEPLOY_KEY", doc["secret_name"])
}

func TestResult_YAML(t *testing.T) {
	out, stdout, _ := newTestOutput(FormatYAML)
	require.NoError(t, out.Result(result(403)))

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, "error", doc["status"])
	assert.Equal(t, "failed", doc["outcome"])
	assert.Equal(t, 403, doc["status_code"])
}

func TestKeyFetchError(t *testing.T) {
	out, stdout, _ := newTestOutput(FormatPlain)
	require.NoError(t, out.KeyFetchError(404))
	assert.Equal(t, "Error with API request for get public key. Status code: 404\n", stdout.String())

	out, stdout, _ = newTestOutput(FormatJSON)
	require.NoError(t, out.KeyFetchError(401))
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, float64(401), doc["status_code"])
}

func TestPublicKey(t *testing.T) {
	key := &remote.PublicKey{KeyID: "123", Key: "base64key="}

	out, stdout, _ := newTestOutput(FormatPlain)
	require.NoError(t, out.PublicKey("octocat/hello-world", key))
	assert.Equal(t, "key_id: 123\nkey: base64key=\n", stdout.String())

	out, stdout, _ = newTestOutput(FormatYAML)
	require.NoError(t, out.PublicKey("octocat/hello-world", key))
	var doc map[string]string
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, map[string]string{"repository": "octocat/hello-world", "key_id": "123", "key": "base64key="}, doc)

	out, stdout, _ = newTestOutput(FormatHuman)
	require.NoError(t, out.PublicKey("octocat/hello-world", key))
	assert.Contains(t, stdout.String(), "Public key for octocat/hello-world")
	assert.Contains(t, stdout.String(), "Key ID:  123")
}

func TestError_Routing(t *testing.T) {
	out, stdout, stderr := newTestOutput(FormatPlain)
	out.Error("boom")
	out.Hint("try again")
	assert.Empty(t, stdout.String())
	assert.Equal(t, "Error: boom\nhint: try again\n", stderr.String())

	out, stdout, stderr = newTestOutput(FormatJSON)
	out.Error("boom")
	out.Hint("try again")
	assert.JSONEq(t, `{"status":"error","message":"boom"}`, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestProgress_NotATerminal(t *testing.T) {
	out, stdout, stderr := newTestOutput(FormatHuman)
	stop := out.Progress("Fetching public key...")
	stop()
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
	assert.False(t, IsTerminal(stdout))
}
