package repository

import (
	"path/filepath"
	"time"
)

// Config represents the config for the replicated repository pair.
type Config struct {
	// git URL of the primary remote, treated as the source of truth
	// for conflict resolution. may contain embedded credentials
	Origin string `yaml:"origin"`

	// git URL of the secondary remote which will be force-overwritten
	// with the replicated state. may contain embedded credentials
	Mirror string `yaml:"mirror"`

	// Branch is the name of the single branch to replicate
	Branch string `yaml:"branch"`

	// Root is the absolute path to the root dir where the working copy
	// dir will be created
	Root string `yaml:"root"`

	// Interval is time duration for how long to wait between replications
	Interval time.Duration `yaml:"interval"`

	// ReplicationTimeout represents the total time allowed for the complete
	// replication run
	ReplicationTimeout time.Duration `yaml:"replication_timeout"`

	// GitGC garbage collection string. valid values are
	// 'auto', 'always', 'aggressive' or 'off'
	GitGC string `yaml:"git_gc"`

	// Identity is the commit author/committer identity used for
	// conflict resolution commits. it is passed to git per invocation
	// and never written to the global config store
	Identity Identity `yaml:"identity"`

	// OriginAuth config to fetch and push the origin remote
	OriginAuth Auth `yaml:"origin_auth"`

	// MirrorAuth config to fetch and force-push the mirror remote
	MirrorAuth Auth `yaml:"mirror_auth"`
}

// Identity represents the commit author identity
type Identity struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Auth represents authentication config of a remote
type Auth struct {
	// username to use for basic or token based authentication
	Username string `yaml:"username"`

	// password or personal access token to use for authentication
	Password string `yaml:"password"`

	// SSH Details
	// path to the ssh key used to access the remote
	SSHKeyPath string `yaml:"ssh_key_path"`

	// path to the known hosts of the remote host
	SSHKnownHostsPath string `yaml:"ssh_known_hosts_path"`

	// Github APP Details
	// The application id or the client ID of the Github app
	GithubAppID string `yaml:"github_app_id"`
	// The installation id of the app (in the organization).
	GithubAppInstallationID string `yaml:"github_app_installation_id"`
	// path to the github app private key
	GithubAppPrivateKeyPath string `yaml:"github_app_private_key_path"`
}

// DefaultRepoDir returns path of dir where all the working copies are created
func DefaultRepoDir(root string) string {
	return filepath.Join(root, "repo-replicas")
}
