package repository

import (
	"context"
	"log/slog"

	"github.com/utilitywarehouse/git-replicate/internal/utils"
)

// runGitCommand runs git command with given arguments on given CWD
// and returns stdout with surrounding whitespace trimmed
func runGitCommand(ctx context.Context, log *slog.Logger, envs []string, gitExec, cwd string, args ...string) (string, error) {
	if gitExec == "" {
		gitExec = "git"
	}
	return utils.RunCommand(ctx, log, envs, cwd, gitExec, args...)
}

// runGitCommandRaw runs git command with given arguments on given CWD
// and returns stdout as is
func runGitCommandRaw(ctx context.Context, log *slog.Logger, envs []string, gitExec, cwd string, args ...string) (string, error) {
	if gitExec == "" {
		gitExec = "git"
	}
	return utils.RunCommandRaw(ctx, log, envs, cwd, gitExec, args...)
}
