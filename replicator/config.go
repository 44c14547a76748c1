package replicator

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/utilitywarehouse/git-replicate/giturl"
	"github.com/utilitywarehouse/git-replicate/repository"
)

// Config is the configuration to create RepoPool
type Config struct {
	// default config for all the repositories if not set
	Defaults DefaultConfig `yaml:"defaults"`
	// List of replicated repositories.
	Repositories []repository.Config `yaml:"repositories"`
}

// DefaultConfig is the default config for repositories if not set at repo level
type DefaultConfig struct {
	// Root is the absolute path to the root dir where all repositories
	// working copy directories will be created
	Root string `yaml:"root"`

	// Branch is the name of the branch to replicate
	Branch string `yaml:"branch"`

	// Interval is time duration for how long to wait between replications
	Interval time.Duration `yaml:"interval"`

	// ReplicationTimeout represents the total time allowed for the complete
	// replication run
	ReplicationTimeout time.Duration `yaml:"replication_timeout"`

	// GitGC garbage collection string. valid values are
	// 'auto', 'always', 'aggressive' or 'off'
	GitGC string `yaml:"git_gc"`

	// Identity is the commit identity used for conflict resolution commits
	Identity repository.Identity `yaml:"identity"`

	// OriginAuth config to fetch and push origin remotes
	OriginAuth repository.Auth `yaml:"origin_auth"`

	// MirrorAuth config to fetch and force-push mirror remotes
	MirrorAuth repository.Auth `yaml:"mirror_auth"`
}

// validateDefaults will verify default config
func (rpc *Config) validateDefaults() error {
	dc := rpc.Defaults

	var errs []error

	if dc.Root != "" {
		if !filepath.IsAbs(dc.Root) {
			errs = append(errs, fmt.Errorf("repository root '%s' must be absolute", dc.Root))
		}
	}

	if dc.Interval != 0 {
		if dc.Interval < repository.MinAllowedInterval {
			errs = append(errs, fmt.Errorf("provided interval between replication is too sort (%s), must be > %s", dc.Interval, repository.MinAllowedInterval))
		}
	}

	if dc.ReplicationTimeout != 0 {
		if dc.ReplicationTimeout < repository.MinAllowedInterval {
			errs = append(errs, fmt.Errorf("provided replication timeout is too sort (%s), must be > %s", dc.ReplicationTimeout, repository.MinAllowedInterval))
		}
	}

	for _, auth := range []repository.Auth{dc.OriginAuth, dc.MirrorAuth} {
		// if any of the github app config is set all should be set
		if auth.GithubAppID != "" ||
			auth.GithubAppInstallationID != "" ||
			auth.GithubAppPrivateKeyPath != "" {
			if auth.GithubAppID == "" ||
				auth.GithubAppInstallationID == "" ||
				auth.GithubAppPrivateKeyPath == "" {
				errs = append(errs, fmt.Errorf("all of the Github app attribute is required"))
			}
		}
	}

	switch dc.GitGC {
	case "":
	case repository.GCAuto, repository.GCAlways, repository.GCAggressive, repository.GCOff:
	default:
		errs = append(errs, fmt.Errorf("wrong gc value provided, must be one of %s, %s, %s, %s",
			repository.GCAuto, repository.GCAlways, repository.GCAggressive, repository.GCOff))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", errs)
	}

	return nil
}

// applyDefaults will add given default config to repository config where needed
func (rpc *Config) applyDefaults() {
	for i := range rpc.Repositories {
		repo := &rpc.Repositories[i]
		if repo.Root == "" {
			repo.Root = rpc.Defaults.Root
		}

		if repo.Branch == "" {
			repo.Branch = rpc.Defaults.Branch
		}

		if repo.Interval == 0 {
			repo.Interval = rpc.Defaults.Interval
		}

		if repo.ReplicationTimeout == 0 {
			repo.ReplicationTimeout = rpc.Defaults.ReplicationTimeout
		}

		if repo.GitGC == "" {
			repo.GitGC = rpc.Defaults.GitGC
		}

		if (repo.Identity == repository.Identity{}) {
			repo.Identity = rpc.Defaults.Identity
		}

		if (repo.OriginAuth == repository.Auth{}) {
			repo.OriginAuth = rpc.Defaults.OriginAuth
		}

		if (repo.MirrorAuth == repository.Auth{}) {
			repo.MirrorAuth = rpc.Defaults.MirrorAuth
		}
	}
}

// It is possible that the same root is used for multiple repositories.
// since working copies are placed at the root by origin repo name, all
// origin URLs must refer to different repositories.
// validateOrigins makes sure origins do not overlap on the same remote
// repo or the same working copy dir.
func (rpc *Config) validateOrigins() error {
	var errs []error

	origins := make(map[string]bool)
	dirs := make(map[string]bool)

	for _, repo := range rpc.Repositories {
		gitURL, err := giturl.Parse(repo.Origin)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		normalised := giturl.NormaliseURL(repo.Origin)
		if ok := origins[normalised]; ok {
			errs = append(errs, fmt.Errorf("duplicate origin found url:%s", giturl.Redact(repo.Origin)))
			continue
		}
		origins[normalised] = true

		dir := filepath.Join(repository.DefaultRepoDir(repo.Root), strings.TrimSuffix(gitURL.Repo, ".git"))
		if ok := dirs[dir]; ok {
			errs = append(errs, fmt.Errorf("repositories with overlapping working copy dir found path:%s", dir))
			continue
		}
		dirs[dir] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", errs)
	}

	return nil
}

// ValidateAndApplyDefaults will validate defaults and origins and apply defaults
func (conf *Config) ValidateAndApplyDefaults() error {
	if err := conf.validateDefaults(); err != nil {
		return err
	}

	conf.applyDefaults()

	if err := conf.validateOrigins(); err != nil {
		return err
	}

	return nil
}
