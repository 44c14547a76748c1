// Package auth mints short lived GitHub App installation tokens scoped to
// the replicated repositories. The token is used as the basic auth password
// on https fetches and pushes.
package auth

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// githubAPIBase is a var so tests can point the client at a local server
var githubAPIBase = "https://api.github.com"

// InstallationTokenRequest identifies the GitHub App installation and the
// repositories the minted token must cover
type InstallationTokenRequest struct {
	AppID          string
	InstallationID string
	PrivateKeyPath string
	// Repositories the token is scoped to, names without the `.git` suffix
	Repositories []string
}

// InstallationToken is a short lived installation access token
type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// tokenScope is the access_tokens request body restricting the token to
// the given repositories and permissions
type tokenScope struct {
	Repositories []string          `json:"repositories"`
	Permissions  map[string]string `json:"permissions"`
}

// InstallationTokenForPush creates an installation access token with
// `contents: write` permission on the requested repositories, enough to
// fetch the replicated branch and push resolution commits back
func InstallationTokenForPush(ctx context.Context, tokenReq InstallationTokenRequest) (*InstallationToken, error) {
	jwtToken, err := signAppJWT(tokenReq.AppID, tokenReq.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to sign app jwt err:%w", err)
	}

	reqBody, err := json.Marshal(tokenScope{
		Repositories: tokenReq.Repositories,
		Permissions:  map[string]string{"contents": "write"},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/app/installations/%s/access_tokens", githubAPIBase, tokenReq.InstallationID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+jwtToken)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		errMessage, err := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub app token response status %d, body:%q  err:%w", resp.StatusCode, errMessage, err)
	}

	var token InstallationToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, err
	}

	return &token, nil
}

// signAppJWT signs the short lived App JWT which authenticates the token
// request itself
func signAppJWT(appID, privateKeyPath string) (string, error) {
	privatePEMData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return "", err
	}

	block, _ := pem.Decode(privatePEMData)
	if block == nil || block.Type != "RSA PRIVATE KEY" {
		return "", fmt.Errorf("failed to decode PEM block containing private key")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return "", err
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: privateKey}, nil)
	if err != nil {
		return "", err
	}

	cl := jwt.Claims{
		// GitHub App's ID or client ID
		Issuer: appID,
		// issued at time, 60 seconds in the past to allow for clock drift
		IssuedAt: jwt.NewNumericDate(time.Now().Add(-60 * time.Second)),
		// JWT expiration time (10 minute maximum)
		Expiry: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
	}

	return jwt.Signed(signer).Claims(cl).Serialize()
}
