package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/utilitywarehouse/git-replicate/auth"
	"github.com/utilitywarehouse/git-replicate/giturl"
)

const loadCredsScript = `#!/bin/sh

case "$1" in
  Username*) echo "$REPO_USERNAME" ;;
  Password*) echo "$REPO_PASSWORD" ;;
esac
`

// authEnv returns the git environment variables required to access the
// given remote. remotes with credentials embedded in the URL need no
// extra environment
func (r *Repository) authEnv(ctx context.Context, rem *remote) []string {
	var envs []string

	if giturl.IsSCPURL(rem.url) || giturl.IsSSHURL(rem.url) {
		envs = append(envs, gitSSHCommand(rem.auth))
		return envs
	}

	// if url is not ssh or https nothing to set
	if !giturl.IsHTTPSURL(rem.url) {
		return nil
	}

	// credentials embedded in the url are passed to git as is
	if rem.gitURL.Password != "" {
		return nil
	}

	var username, password string
	switch {
	// if username & password is set use that
	case rem.auth.Username != "" && rem.auth.Password != "":
		username = rem.auth.Username
		password = rem.auth.Password

	// if only password (token) is set use that
	case rem.auth.Password != "":
		username = "-" // username is required
		password = rem.auth.Password

	// if github app config is set use that token
	case rem.auth.GithubAppInstallationID != "" && rem.gitURL.Host == "github.com":
		// github matches repo name without `.git` for permission for token req
		token, err := r.getGithubAppToken(ctx, rem, strings.TrimSuffix(rem.gitURL.Repo, ".git"))
		if err != nil {
			r.log.Error("unable to get github app token", "remote", rem.name, "err", err)
			return nil
		}
		username = "-" // username is required
		password = token

	default:
		return nil
	}

	credsLoader, err := r.ensureCredsLoader()
	if err != nil {
		r.log.Error("unable to write load creds script file", "err", err)
		return nil
	}

	envs = append(envs, fmt.Sprintf(`GIT_ASKPASS=%s`, credsLoader))
	envs = append(envs, fmt.Sprintf(`REPO_USERNAME=%s`, username))
	envs = append(envs, fmt.Sprintf(`REPO_PASSWORD=%s`, password))

	return envs
}

// ensureCredsLoader writes the askpass helper inside the git dir so the
// working tree stays clean
func (r *Repository) ensureCredsLoader() (string, error) {
	credsLoader := filepath.Join(r.dir, ".git", "git-replicate-creds-loader.sh")

	_, err := os.Stat(credsLoader)
	switch {
	case os.IsNotExist(err):
		if err := os.WriteFile(credsLoader, []byte(loadCredsScript), 0750); err != nil {
			return "", err
		}
	case err != nil:
		return "", fmt.Errorf("unable to check if script file exits err:%w", err)
	}

	return credsLoader, nil
}

// gitSSHCommand returns the environment variable to be used for configuring
// git over ssh.
func gitSSHCommand(a *Auth) string {
	sshKeyPath := a.SSHKeyPath
	if sshKeyPath == "" {
		sshKeyPath = "/dev/null"
	}
	knownHostsOptions := "-o UserKnownHostsFile=/dev/null -o StrictHostKeyChecking=no"
	if a.SSHKeyPath != "" && a.SSHKnownHostsPath != "" {
		knownHostsOptions = fmt.Sprintf("-o UserKnownHostsFile=%s", a.SSHKnownHostsPath)
	}
	return fmt.Sprintf(`GIT_SSH_COMMAND=ssh -q -F none -o IdentitiesOnly=yes -o IdentityFile=%s %s`, sshKeyPath, knownHostsOptions)
}

func (r *Repository) getGithubAppToken(ctx context.Context, rem *remote, repo string) (string, error) {
	// return token if current token is valid for next 10 min
	if rem.githubAppTokenExpiresAt.After(time.Now().UTC().Add(10 * time.Minute)) {
		return rem.githubAppToken, nil
	}

	token, err := auth.InstallationTokenForPush(ctx, auth.InstallationTokenRequest{
		AppID:          rem.auth.GithubAppID,
		InstallationID: rem.auth.GithubAppInstallationID,
		PrivateKeyPath: rem.auth.GithubAppPrivateKeyPath,
		Repositories:   []string{repo},
	})
	if err != nil {
		return "", err
	}

	rem.githubAppToken = token.Token
	rem.githubAppTokenExpiresAt = token.ExpiresAt

	r.log.Debug("new github app access token created", "remote", rem.name)

	return rem.githubAppToken, nil
}
