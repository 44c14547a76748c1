package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"reflect"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/utilitywarehouse/git-replicate/giturl"
	"github.com/utilitywarehouse/git-replicate/replicator"
	"github.com/utilitywarehouse/git-replicate/repository"
	"gopkg.in/yaml.v3"
)

const (
	defaultBranch             = "master"
	defaultGitGC              = "always"
	defaultInterval           = 30 * time.Second
	defaultReplicationTimeout = 2 * time.Minute
)

var (
	defaultRoot = path.Join(os.TempDir(), "git-replicate")

	configSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "git_replicate_config_last_reload_successful",
		Help: "Whether the last configuration reload attempt was successful.",
	})
	configSuccessTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "git_replicate_config_last_reload_success_timestamp_seconds",
		Help: "Timestamp of the last successful configuration reload.",
	})
)

// WatchConfig polls the config file every interval and reloads if modified
func WatchConfig(ctx context.Context, path string, watchConfig bool, interval time.Duration, onChange func(*replicator.Config) bool) {
	var lastModTime time.Time
	var success bool

	for {
		lastModTime, success = loadConfig(path, lastModTime, onChange)
		if success {
			configSuccess.Set(1)
			configSuccessTime.SetToCurrentTime()
		} else {
			configSuccess.Set(0)
		}

		if !watchConfig {
			return
		}

		t := time.NewTimer(interval)
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
}

func loadConfig(path string, lastModTime time.Time, onChange func(*replicator.Config) bool) (time.Time, bool) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		logger.Error("Error checking config file", "err", err)
		return lastModTime, false
	}

	modTime := fileInfo.ModTime()
	if modTime.Equal(lastModTime) {
		return lastModTime, true
	}

	logger.Info("reloading config file...")

	newConfig, err := parseConfigFile(path)
	if err != nil {
		logger.Error("failed to reload config", "err", err)
		return lastModTime, false
	}
	return modTime, onChange(newConfig)
}

// ensureConfig will do the diff between current repoPool state and new config
// and based on that diff it will add/remove repositories
func ensureConfig(repoPool *replicator.RepoPool, newConfig *replicator.Config) bool {
	success := true

	// add default values
	newConfig = applyGitDefaults(newConfig)

	// validate and apply defaults to new config before compare
	if err := newConfig.ValidateAndApplyDefaults(); err != nil {
		logger.Error("failed to validate new config", "err", err)
		return false
	}

	newRepos, removedRepos := diffRepositories(repoPool, newConfig)
	for _, repo := range removedRepos {
		if err := repoPool.RemoveRepository(repo); err != nil {
			logger.Error("failed to remove repository", "origin", giturl.Redact(repo), "err", err)
			success = false
		}
	}
	for _, repo := range newRepos {
		if err := repoPool.AddRepository(repo); err != nil {
			logger.Error("failed to add new repository", "origin", giturl.Redact(repo.Origin), "err", err)
			success = false
		}
	}

	// start replication Loop on newly added repos
	repoPool.StartLoop()

	return success
}

func applyGitDefaults(conf *replicator.Config) *replicator.Config {
	if conf.Defaults.Root == "" {
		conf.Defaults.Root = defaultRoot
	}

	if conf.Defaults.Branch == "" {
		conf.Defaults.Branch = defaultBranch
	}

	if conf.Defaults.GitGC == "" {
		conf.Defaults.GitGC = defaultGitGC
	}

	if conf.Defaults.Interval == 0 {
		conf.Defaults.Interval = defaultInterval
	}

	if conf.Defaults.ReplicationTimeout == 0 {
		conf.Defaults.ReplicationTimeout = defaultReplicationTimeout
	}

	return conf
}

func parseConfigFile(path string) (*replicator.Config, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = validateConfig(yamlFile)
	if err != nil {
		return nil, err
	}

	conf := &replicator.Config{}
	err = yaml.Unmarshal(yamlFile, conf)
	if err != nil {
		return nil, err
	}

	return conf, nil
}

func validateConfig(yamlData []byte) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(yamlData, &raw); err != nil {
		return err
	}

	// defaults and repositories sections are mandatory
	if _, ok := raw["defaults"]; !ok {
		return fmt.Errorf("defaults config section is missing")
	}

	if _, ok := raw["repositories"]; !ok {
		return fmt.Errorf("repositories config section is missing")
	}

	// check config sections for unexpected keys
	allowedPoolConfig := getAllowedKeys(replicator.Config{})
	if key := findUnexpectedKey(raw, allowedPoolConfig); key != "" {
		return fmt.Errorf("unexpected key: .%v", key)
	}

	// check "defaults" section
	defaultsMap, ok := raw["defaults"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("defaults section is missing or not valid")
	}
	allowedDefaults := getAllowedKeys(replicator.DefaultConfig{})

	if key := findUnexpectedKey(defaultsMap, allowedDefaults); key != "" {
		return fmt.Errorf("unexpected key: .defaults.%v", key)
	}

	if err := validateSubSections(defaultsMap, ".defaults"); err != nil {
		return err
	}

	// check each repository in "repositories" section
	allowedRepoKeys := getAllowedKeys(repository.Config{})
	for _, repoInterface := range raw["repositories"].([]interface{}) {
		repoMap, ok := repoInterface.(map[string]interface{})
		if !ok {
			return fmt.Errorf("repositories config section is not valid")
		}

		if key := findUnexpectedKey(repoMap, allowedRepoKeys); key != "" {
			return fmt.Errorf("unexpected key: .repositories[%v].%v", repoMap["origin"], key)
		}

		if err := validateSubSections(repoMap, fmt.Sprintf(".repositories[%v]", repoMap["origin"])); err != nil {
			return err
		}
	}

	return nil
}

// validateSubSections checks the identity and auth sections which appear
// both in defaults and in each repository config
func validateSubSections(section map[string]interface{}, path string) error {
	if identityMap, ok := section["identity"].(map[string]interface{}); ok {
		allowedIdentityKeys := getAllowedKeys(repository.Identity{})
		if key := findUnexpectedKey(identityMap, allowedIdentityKeys); key != "" {
			return fmt.Errorf("unexpected key: %s.identity.%v", path, key)
		}
	}

	allowedAuthKeys := getAllowedKeys(repository.Auth{})
	for _, authSection := range []string{"origin_auth", "mirror_auth"} {
		if authMap, ok := section[authSection].(map[string]interface{}); ok {
			if key := findUnexpectedKey(authMap, allowedAuthKeys); key != "" {
				return fmt.Errorf("unexpected key: %s.%s.%v", path, authSection, key)
			}
		}
	}

	return nil
}

// getAllowedKeys retrieves a list of allowed keys from the specified struct
func getAllowedKeys(config interface{}) []string {
	var allowedKeys []string
	val := reflect.ValueOf(config)
	typ := reflect.TypeOf(config)

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		yamlTag := field.Tag.Get("yaml")
		if yamlTag != "" {
			allowedKeys = append(allowedKeys, yamlTag)
		}
	}
	return allowedKeys
}

func findUnexpectedKey(raw interface{}, allowedKeys []string) string {
	for key := range raw.(map[string]interface{}) {
		if !slices.Contains(allowedKeys, key) {
			return key
		}
	}

	return ""
}

// diffRepositories will do the diff between current state and new config and
// return new repositories config and list of origin urls which are not found
// in the new config
func diffRepositories(repoPool *replicator.RepoPool, newConfig *replicator.Config) (
	newRepos []repository.Config,
	removedRepos []string,
) {
	for _, newRepo := range newConfig.Repositories {
		if _, err := repoPool.Repository(newRepo.Origin); errors.Is(err, replicator.ErrNotExist) {
			newRepos = append(newRepos, newRepo)
		}
	}

	for _, currentRepoURL := range repoPool.RepositoriesOrigin() {
		var found bool
		for _, newRepo := range newConfig.Repositories {
			if currentRepoURL == giturl.NormaliseURL(newRepo.Origin) {
				found = true
				break
			}
		}
		if !found {
			removedRepos = append(removedRepos, currentRepoURL)
		}
	}

	return
}
