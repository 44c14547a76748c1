package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// StatusCode is a single letter of `git status --porcelain` output
type StatusCode byte

const (
	StatusUnmodified StatusCode = ' '
	StatusModified   StatusCode = 'M'
	StatusTypeChange StatusCode = 'T'
	StatusAdded      StatusCode = 'A'
	StatusDeleted    StatusCode = 'D'
	StatusRenamed    StatusCode = 'R'
	StatusCopied     StatusCode = 'C'
	StatusUnmerged   StatusCode = 'U'
	StatusUntracked  StatusCode = '?'
	StatusIgnored    StatusCode = '!'
)

// PathStatus is one entry of the porcelain status output.
// Staging is the status of the index (X) and Worktree is the status
// of the working tree (Y)
type PathStatus struct {
	Staging  StatusCode
	Worktree StatusCode
	Path     string
	// OrigPath is only set for renamed and copied paths
	OrigPath string
}

// Unmerged returns whether the path is in an unresolved merge state
func (ps PathStatus) Unmerged() bool {
	switch {
	case ps.Staging == StatusUnmerged || ps.Worktree == StatusUnmerged:
	case ps.Staging == StatusAdded && ps.Worktree == StatusAdded:
	case ps.Staging == StatusDeleted && ps.Worktree == StatusDeleted:
	default:
		return false
	}
	return true
}

// Untracked returns whether the path is not tracked by git
func (ps PathStatus) Untracked() bool {
	return ps.Staging == StatusUntracked
}

// oursAbsent returns whether an unmerged path has no local (ours) side,
// either deleted by us ('DD','DU') or only added by them ('UA')
func (ps PathStatus) oursAbsent() bool {
	return ps.Staging == StatusDeleted ||
		(ps.Staging == StatusUnmerged && ps.Worktree == StatusAdded)
}

// parsePorcelainStatus parses `git status --porcelain` (v1) output into
// typed per path states
func parsePorcelainStatus(out string) ([]PathStatus, error) {
	var entries []PathStatus

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if len(line) < 4 || line[2] != ' ' {
			return nil, fmt.Errorf("unable to parse status line %q", line)
		}

		ps := PathStatus{
			Staging:  StatusCode(line[0]),
			Worktree: StatusCode(line[1]),
		}

		path := line[3:]
		// without `-z` only renamed and copied entries carry a " -> "
		// separated source path. a literal arrow in any other path is
		// part of the file name and must survive parsing
		if orig, newPath, found := cutRenameArrow(ps, path); found {
			ps.OrigPath = unquotePath(orig)
			ps.Path = unquotePath(newPath)
		} else {
			ps.Path = unquotePath(path)
		}

		entries = append(entries, ps)
	}

	return entries, nil
}

// cutRenameArrow splits a rename or copy entry into source and destination
// path. both sides are quoted separately by git so the separator itself is
// never part of a quoted path
func cutRenameArrow(ps PathStatus, path string) (string, string, bool) {
	renamed := ps.Staging == StatusRenamed || ps.Worktree == StatusRenamed ||
		ps.Staging == StatusCopied || ps.Worktree == StatusCopied
	if !renamed {
		return "", "", false
	}
	return strings.Cut(path, " -> ")
}

// unquotePath reverses gits C style quoting of paths with special chars
func unquotePath(path string) string {
	if len(path) > 1 && path[0] == '"' {
		if uq, err := strconv.Unquote(path); err == nil {
			return uq
		}
	}
	return path
}

// statusEntries returns typed status of every changed path of the working copy
func (r *Repository) statusEntries(ctx context.Context) ([]PathStatus, error) {
	// git status --porcelain
	out, err := runGitCommandRaw(ctx, r.log, r.envs, r.cmd, r.dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelainStatus(out)
}

// unmergedEntries returns status of paths which are in unresolved merge state
func (r *Repository) unmergedEntries(ctx context.Context) ([]PathStatus, error) {
	entries, err := r.statusEntries(ctx)
	if err != nil {
		return nil, err
	}

	var unmerged []PathStatus
	for _, ps := range entries {
		if ps.Unmerged() {
			unmerged = append(unmerged, ps)
		}
	}
	return unmerged, nil
}
