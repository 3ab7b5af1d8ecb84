// Package fakegithub serves the two GitHub Actions secret endpoints from an
// in-process HTTP server backed by a real curve25519 key pair, so tests can
// check that submitted values actually decrypt.
package fakegithub

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/skiyl9x/ghsecret/internal/seal"
)

// Request is a recorded call to the fake API
type Request struct {
	Method        string
	Path          string
	Accept        string
	Authorization string
	Body          []byte
}

// Server is a fake GitHub API for one set of credentials
type Server struct {
	*httptest.Server

	Login  string
	Token  string
	KeyID  string
	Keys   *seal.KeyPair
	Bearer bool

	mu        sync.Mutex
	getStatus int
	putStatus int
	omit      map[string]bool
	requests  []Request
	secrets   map[string]string
}

// Option customizes a Server
type Option func(*Server)

// WithPublicKeyStatus forces the status of the public key endpoint
func WithPublicKeyStatus(status int) Option {
	return func(s *Server) { s.getStatus = status }
}

// WithSecretStatus forces the status of the secret endpoint
func WithSecretStatus(status int) Option {
	return func(s *Server) { s.putStatus = status }
}

// WithoutField drops "key" or "key_id" from the public key response
func WithoutField(field string) Option {
	return func(s *Server) { s.omit[field] = true }
}

// WithBearerAuth expects "Authorization: Bearer <token>" instead of basic auth
func WithBearerAuth() Option {
	return func(s *Server) { s.Bearer = true }
}

// WithExistingSecret pre-creates a secret so the next PUT answers 204
func WithExistingSecret(name string) Option {
	return func(s *Server) { s.secrets[name] = "" }
}

// New starts a fake API that accepts login/token. It is closed with the test.
func New(t testing.TB, login, token string, opts ...Option) *Server {
	t.Helper()

	keys, err := seal.GenerateKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	s := &Server{
		Login:   login,
		Token:   token,
		KeyID:   "568250167242549743",
		Keys:    keys,
		omit:    make(map[string]bool),
		secrets: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.authenticate)
	r.Get("/repos/{owner}/{repo}/actions/secrets/public-key", s.handlePublicKey)
	r.Put("/repos/{owner}/{repo}/actions/secrets/{name}", s.handlePutSecret)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// APIURL returns the API root with the trailing slash go-github expects
func (s *Server) APIURL() string {
	return s.Server.URL + "/"
}

// Requests returns a copy of every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Secret returns the decrypted value stored under name
func (s *Server) Secret(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.secrets[name]
	return v, ok
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Accept:        r.Header.Get("Accept"),
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok := false
		if s.Bearer {
			ok = r.Header.Get("Authorization") == "Bearer "+s.Token
		} else {
			user, pass, hasBasic := r.BasicAuth()
			ok = hasBasic && user == s.Login && pass == s.Token
		}
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	if s.getStatus != 0 && s.getStatus != http.StatusOK {
		writeJSON(w, s.getStatus, map[string]string{"message": http.StatusText(s.getStatus)})
		return
	}

	body := map[string]string{}
	if !s.omit["key_id"] {
		body["key_id"] = s.KeyID
	}
	if !s.omit["key"] {
		body["key"] = s.Keys.PublicBase64()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePutSecret(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var payload struct {
		EncryptedValue string `json:"encrypted_value"`
		KeyID          string `json:"key_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Problems parsing JSON"})
		return
	}
	if payload.KeyID != s.KeyID {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "key_id does not match"})
		return
	}

	plaintext, err := s.Keys.Open(payload.EncryptedValue)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Bad encrypted_value"})
		return
	}

	if s.putStatus != 0 {
		writeJSON(w, s.putStatus, map[string]string{"message": http.StatusText(s.putStatus)})
		return
	}

	s.mu.Lock()
	_, existed := s.secrets[name]
	s.secrets[name] = string(plaintext)
	s.mu.Unlock()

	if existed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
