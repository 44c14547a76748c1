package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/utilitywarehouse/git-replicate/internal/utils"
	"github.com/utilitywarehouse/git-replicate/replicator"
	"github.com/utilitywarehouse/git-replicate/repository"
)

// cleanupOrphanedRepos deletes working copies from the default root
// which are no longer referenced in config and were removed while app was
// down. Any removal while app is running is already handled by ensureConfig()
// hence this function should be called once
func cleanupOrphanedRepos(config *replicator.Config, repoPool *replicator.RepoPool) {
	// if default root is not set repos might not be located in same dir
	if config.Defaults.Root == "" {
		return
	}

	repoDirs := repoPool.RepositoriesDirPath()
	defaultRepoDirRoot := repository.DefaultRepoDir(config.Defaults.Root)

	entries, err := os.ReadDir(defaultRepoDirRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("unable to read root dir for clean up", "err", err)
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		fullPath := filepath.Join(defaultRepoDirRoot, entry.Name())

		if slices.Contains(repoDirs, fullPath) {
			continue
		}

		// since git-replicate creates working copies non-repo dir or
		// a dir which is not a work tree root must be skipped
		if !isWorkTreeRoot(fullPath) {
			continue
		}

		logger.Info("removing orphaned repo dir...", "path", fullPath)
		if err := os.RemoveAll(fullPath); err != nil {
			logger.Error("unable to remove orphaned repo dir", "path", fullPath, "err", err)
			continue
		}
	}
}

// isWorkTreeRoot returns whether the given dir is the top level dir of a
// git working copy. err is expected on non-repo dirs
func isWorkTreeRoot(cwd string) bool {
	if output, _ := runGitCommand(cwd, "rev-parse", "--is-inside-work-tree"); output != "true" {
		return false
	}

	output, _ := runGitCommand(cwd, "rev-parse", "--show-toplevel")
	return output == cwd
}

// runGitCommand runs git command with given arguments on given CWD
func runGitCommand(cwd string, args ...string) (string, error) {
	return utils.RunCommand(context.TODO(), logger, nil, cwd, gitExecutablePath, args...)
}
