package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/go-cmp/cmp"
)

func TestInstallationTokenForPush(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("unable to generate key err: %v", err)
	}
	keyPath := filepath.Join(t.TempDir(), "app.pem")
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		t.Fatalf("unable to write key err: %v", err)
	}

	wantExpiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method mismatch got:%s want:POST", r.Method)
		}
		if r.URL.Path != "/app/installations/42/access_tokens" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		// the request must be authenticated with an app jwt issued by
		// the configured app
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		parsed, err := jwt.ParseSigned(bearer, []jose.SignatureAlgorithm{jose.RS256})
		if err != nil {
			t.Errorf("unable to parse app jwt err: %v", err)
		} else {
			var cl jwt.Claims
			if err := parsed.Claims(&key.PublicKey, &cl); err != nil {
				t.Errorf("unable to verify app jwt err: %v", err)
			} else if cl.Issuer != "1010" {
				t.Errorf("jwt issuer mismatch got:%s want:1010", cl.Issuer)
			}
		}

		var scope tokenScope
		if err := json.NewDecoder(r.Body).Decode(&scope); err != nil {
			t.Errorf("unable to decode request body err: %v", err)
		}
		wantScope := tokenScope{
			Repositories: []string{"repo"},
			Permissions:  map[string]string{"contents": "write"},
		}
		if diff := cmp.Diff(wantScope, scope); diff != "" {
			t.Errorf("token scope mismatch (-want +got):\n%s", diff)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(InstallationToken{Token: "ghs_t0k3n", ExpiresAt: wantExpiry})
	}))
	defer srv.Close()

	oldBase := githubAPIBase
	githubAPIBase = srv.URL
	defer func() { githubAPIBase = oldBase }()

	token, err := InstallationTokenForPush(context.Background(), InstallationTokenRequest{
		AppID:          "1010",
		InstallationID: "42",
		PrivateKeyPath: keyPath,
		Repositories:   []string{"repo"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Token != "ghs_t0k3n" {
		t.Errorf("token mismatch got:%s want:ghs_t0k3n", token.Token)
	}
	if !token.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiry mismatch got:%s want:%s", token.ExpiresAt, wantExpiry)
	}
}

func TestInstallationTokenForPush_denied(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("unable to generate key err: %v", err)
	}
	keyPath := filepath.Join(t.TempDir(), "app.pem")
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		t.Fatalf("unable to write key err: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	oldBase := githubAPIBase
	githubAPIBase = srv.URL
	defer func() { githubAPIBase = oldBase }()

	if _, err := InstallationTokenForPush(context.Background(), InstallationTokenRequest{
		AppID:          "1010",
		InstallationID: "42",
		PrivateKeyPath: keyPath,
		Repositories:   []string{"repo"},
	}); err == nil {
		t.Errorf("error was expected for denied token request")
	}
}
