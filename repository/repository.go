package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/utilitywarehouse/git-replicate/giturl"
	"github.com/utilitywarehouse/git-replicate/internal/lock"
	"github.com/utilitywarehouse/git-replicate/internal/utils"
)

const (
	defaultDirMode fs.FileMode = os.FileMode(0755) // 'rwxr-xr-x'

	// OriginRemoteName is the git remote name of the primary remote
	OriginRemoteName = "origin"
	// MirrorRemoteName is the git remote name of the secondary remote
	MirrorRemoteName = "mirror"

	// MinAllowedInterval is the minimum allowed replication interval
	MinAllowedInterval = time.Second

	initialCommitMsg     = "Initial commit"
	originMergeCommitMsg = "Merge origin: keep local content on conflict"
	mirrorMergeCommitMsg = "Merge mirror: keep origin content on conflict"
)

const (
	GCAuto       = "auto"
	GCAlways     = "always"
	GCAggressive = "aggressive"
	GCOff        = "off"
)

type gcMode string

// MergeOutcome is the explicit result of a merge attempt from a remote
type MergeOutcome int

const (
	// MergeFailed indicates an unexpected merge failure which did not
	// leave conflicted paths behind (tolerated, reported via error)
	MergeFailed MergeOutcome = iota
	// MergeUpToDate indicates there was nothing to merge
	MergeUpToDate
	// MergeClean indicates the merge completed without conflicts
	MergeClean
	// MergeResolved indicates conflicts occurred and were resolved
	// by the keep-ours policy
	MergeResolved
)

func (m MergeOutcome) String() string {
	switch m {
	case MergeUpToDate:
		return "up-to-date"
	case MergeClean:
		return "merged"
	case MergeResolved:
		return "conflicts-resolved"
	default:
		return "failed"
	}
}

// MergeResult holds the outcome of a merge attempt and the paths on which
// the incoming conflicting change was discarded
type MergeResult struct {
	Outcome       MergeOutcome
	ResolvedPaths []string
}

// remote is a named pointer to an external repository URL with its
// auth config. remote entries are re-created on every replication run
// so their URLs always match current config
type remote struct {
	name   string
	url    string
	gitURL *giturl.URL
	auth   *Auth

	githubAppToken          string
	githubAppTokenExpiresAt time.Time
}

// Repository represents a replicated repository pair: a local working copy
// tracking the origin remote which is force-published to the mirror remote.
// A Repository is safe for concurrent use by multiple goroutines.
type Repository struct {
	lock               lock.RWMutex  // repository will be locked during replication
	origin             *remote       // primary remote, source of truth
	mirror             *remote       // secondary remote, always force-overwritten
	branch             string        // the single branch to replicate
	identity           Identity      // commit identity for resolution commits
	root               string        // absolute path to the root where working copy dir is created
	dir                string        // absolute path to the working copy
	interval           time.Duration // how long to wait between replications
	replicationTimeout time.Duration // the total time allowed for one replication run
	gitGC              gcMode        // garbage collection
	cmd                string        // git executable
	envs               []string      // envs which will be passed to git commands
	running            atomic.Bool   // indicates if repository is running the replication loop
	queue              chan struct{} // pending on-demand replication runs
	stop, stopped      chan bool     // chans to stop replication loop
	log                *slog.Logger
}

// New creates new repository from the given config.
// Remotes will not be replicated until either Replicate() or StartLoop()
// is called.
func New(repoConf Config, gitExec string, envs []string, log *slog.Logger) (*Repository, error) {
	originURL := giturl.NormaliseURL(repoConf.Origin)
	mirrorURL := giturl.NormaliseURL(repoConf.Mirror)

	oURL, err := giturl.Parse(originURL)
	if err != nil {
		return nil, err
	}
	mURL, err := giturl.Parse(mirrorURL)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}
	log = log.With("repo", oURL.Repo)

	if gitExec == "" {
		gitExec = "git"
	}

	if !filepath.IsAbs(repoConf.Root) {
		return nil, fmt.Errorf("repository root '%s' must be absolute", repoConf.Root)
	}

	if repoConf.Branch == "" {
		return nil, fmt.Errorf("replicated branch name cannot be empty")
	}

	if repoConf.Interval < MinAllowedInterval {
		return nil, fmt.Errorf("provided interval between replication is too sort (%s), must be > %s", repoConf.Interval, MinAllowedInterval)
	}

	if repoConf.ReplicationTimeout < MinAllowedInterval {
		return nil, fmt.Errorf("provided replication timeout is too sort (%s), must be > %s", repoConf.ReplicationTimeout, MinAllowedInterval)
	}

	if repoConf.Identity.Name == "" || repoConf.Identity.Email == "" {
		return nil, fmt.Errorf("commit identity name and email are required")
	}

	switch repoConf.GitGC {
	case GCAuto, GCAlways, GCAggressive, GCOff:
	default:
		return nil, fmt.Errorf("wrong gc value provided, must be one of %s, %s, %s, %s",
			GCAuto, GCAlways, GCAggressive, GCOff)
	}

	// working copy dir is added under own dir on the given root so it is
	// safe to delete and re-create it if needed. the root could be shared
	// with other replicated repositories
	repoDir := strings.TrimSuffix(oURL.Repo, ".git")
	repoDir = filepath.Join(DefaultRepoDir(repoConf.Root), repoDir)

	return &Repository{
		origin:             &remote{name: OriginRemoteName, url: originURL, gitURL: oURL, auth: &repoConf.OriginAuth},
		mirror:             &remote{name: MirrorRemoteName, url: mirrorURL, gitURL: mURL, auth: &repoConf.MirrorAuth},
		branch:             repoConf.Branch,
		identity:           repoConf.Identity,
		root:               repoConf.Root,
		dir:                repoDir,
		interval:           repoConf.Interval,
		replicationTimeout: repoConf.ReplicationTimeout,
		gitGC:              gcMode(repoConf.GitGC),
		cmd:                gitExec,
		envs:               envs,
		queue:              make(chan struct{}, 1),
		stop:               make(chan bool),
		stopped:            make(chan bool),
		log:                log,
	}, nil
}

// Origin returns the normalised URL of the repository's primary remote
func (r *Repository) Origin() string {
	return r.origin.url
}

// Mirror returns the normalised URL of the repository's secondary remote
func (r *Repository) Mirror() string {
	return r.mirror.url
}

// Directory returns the absolute path of the repository's working copy
func (r *Repository) Directory() string {
	return r.dir
}

// Branch returns the name of the replicated branch
func (r *Repository) Branch() string {
	return r.branch
}

// IsRunning returns if the replication loop is running on the repository
func (r *Repository) IsRunning() bool {
	return r.running.Load()
}

// Hash returns the commit hash of the given revision
func (r *Repository) Hash(ctx context.Context, ref string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.hash(ctx, ref)
}

func (r *Repository) hash(ctx context.Context, ref string) (string, error) {
	// git rev-parse <ref>
	return r.git(ctx, nil, "rev-parse", ref)
}

// LogMsg returns the formatted log subject with author info of the given
// revision
func (r *Repository) LogMsg(ctx context.Context, ref string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	// git log --pretty=format:'%s (%an)' -n 1 <ref>
	msg, err := r.git(ctx, nil, "log", `--pretty=format:'%s (%an)'`, "-n", "1", ref)
	if err != nil {
		return "", err
	}
	return strings.Trim(msg, "'"), nil
}

// git runs git command with given additional envs on the working copy dir
func (r *Repository) git(ctx context.Context, envs []string, args ...string) (string, error) {
	return runGitCommand(ctx, r.log, append(slices.Clone(r.envs), envs...), r.cmd, r.dir, args...)
}

// identityEnvs returns the commit identity as git environment variables.
// identity is scoped to single git invocations so concurrent repositories
// with different identities never race on the global config store
func (r *Repository) identityEnvs() []string {
	return []string{
		"GIT_AUTHOR_NAME=" + r.identity.Name,
		"GIT_AUTHOR_EMAIL=" + r.identity.Email,
		"GIT_COMMITTER_NAME=" + r.identity.Name,
		"GIT_COMMITTER_EMAIL=" + r.identity.Email,
	}
}

// QueueReplicateRun schedules an on-demand replication run. it only
// takes effect if replication loop is running
func (r *Repository) QueueReplicateRun() {
	select {
	case r.queue <- struct{}{}:
	default:
		// run already queued
	}
}

// StartLoop replicates repository periodically based on repo's interval
func (r *Repository) StartLoop(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Error("replication loop has already been started")
		return
	}
	r.log.Info("started repository replication loop", "interval", r.interval)

	defer func() {
		r.running.Store(false)
		close(r.stopped)
	}()

	for {
		// to stop replication running indefinitely we will use time-out
		rCtx, cancel := context.WithTimeout(ctx, r.replicationTimeout)
		err := r.Replicate(rCtx)
		cancel()
		if err != nil {
			r.log.Error("repository replication failed", "err", err)
		}
		recordReplication(r.origin.gitURL.Repo, err == nil)

		t := time.NewTimer(r.interval)
		select {
		case <-t.C:
		case <-r.queue:
			t.Stop()
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		}
	}
}

// StopLoop stops the running replication loop and waits for it to finish
func (r *Repository) StopLoop() {
	if !r.running.Load() {
		return
	}
	r.stop <- true
	<-r.stopped
	r.log.Info("repository replication loop stopped")
}

// Replicate runs one replication cycle of the repository
//  1. init and validate existing working copy
//  2. reset remote entries to current config
//  3. clear leftover merge state of a previous failed run
//  4. fetch both remotes and force-reset branch to origin's tip
//  5. merge origin then mirror, resolving conflicts by keep-ours policy
//  6. push to origin if needed and force-push to mirror
func (r *Repository) Replicate(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	defer updateReplicationLatency(r.origin.gitURL.Repo, time.Now())

	start := time.Now()

	if err := r.ensureRepo(ctx); err != nil {
		return fmt.Errorf("unable to init repo:%s  err:%w", r.origin.gitURL.Repo, err)
	}

	if err := r.resetRemotes(ctx); err != nil {
		return fmt.Errorf("unable to reset remotes repo:%s  err:%w", r.origin.gitURL.Repo, err)
	}

	if err := r.clearMergeState(ctx); err != nil {
		return fmt.Errorf("unable to clear merge state repo:%s  err:%w", r.origin.gitURL.Repo, err)
	}

	if err := r.syncBranch(ctx); err != nil {
		return fmt.Errorf("unable to sync branch repo:%s  err:%w", r.origin.gitURL.Repo, err)
	}

	// merge failures are expected (diverged or unrelated mirror state)
	// and must not block the force-push which will supersede them
	originMerge, err := r.mergeFrom(ctx, r.origin, originMergeCommitMsg)
	if err != nil {
		r.log.Error("merge from origin failed", "err", err)
	}

	mirrorMerge, err := r.mergeFrom(ctx, r.mirror, mirrorMergeCommitMsg)
	if err != nil {
		r.log.Error("merge from mirror failed", "err", err)
	}

	if err := r.publish(ctx); err != nil {
		return fmt.Errorf("unable to publish repo:%s  err:%w", r.origin.gitURL.Repo, err)
	}

	if err := r.maintenance(ctx); err != nil {
		r.log.Error("repository maintenance failed", "err", err)
	}

	r.log.Info("replication cycle complete",
		"time", time.Since(start),
		"origin-merge", originMerge.Outcome,
		"mirror-merge", mirrorMerge.Outcome,
		"resolved-conflicts", len(originMerge.ResolvedPaths)+len(mirrorMerge.ResolvedPaths))
	return nil
}

// ensureRepo examines the working copy and determines if it is usable or
// not. If not, it will (re)initialize it with the configured branch name
// and an empty root commit so the repository is push/pull capable before
// any remote interaction
func (r *Repository) ensureRepo(ctx context.Context) error {
	_, err := os.Stat(r.dir)
	switch {
	case os.IsNotExist(err):
		// initial replication
		r.log.Info("repo directory does not exist, creating it", "path", r.dir)
		if err := os.MkdirAll(r.dir, defaultDirMode); err != nil {
			return fmt.Errorf("unable to create repo dir err:%w", err)
		}
	case err != nil:
		return fmt.Errorf("unable to verify repo dir err:%w", err)
	default:
		// Make sure the directory we found is actually usable.
		if r.sanityCheckRepo(ctx) {
			r.log.Log(ctx, -8, "existing repo directory is valid", "path", r.dir)
			return nil
		}
		// Maybe a previous run crashed? Git won't use this dir.
		// since we add own folder to given root path we can just delete
		// whole dir and re-create it
		r.log.Error("repo directory was empty or failed checks, re-creating...", "path", r.dir)
		if err := utils.ReCreate(r.dir); err != nil {
			return fmt.Errorf("unable to re-create repo dir err:%w", err)
		}
	}

	r.log.Info("initializing repo directory", "path", r.dir)
	// the main branch is named from config so the tracking branch can be
	// created on it before first fetch
	// git init -q -b <branch>
	if _, err := r.git(ctx, nil, "init", "-q", "-b", r.branch); err != nil {
		return fmt.Errorf("unable to init repo err:%w", err)
	}

	// an empty root commit makes the fresh repository pushable even if
	// both remotes turn out to be empty as well
	// git commit -q --allow-empty -m <msg>
	if _, err := r.git(ctx, r.identityEnvs(), "commit", "-q", "--allow-empty", "-m", initialCommitMsg); err != nil {
		return fmt.Errorf("unable to create root commit err:%w", err)
	}

	if !r.sanityCheckRepo(ctx) {
		return fmt.Errorf("can't initialize git repo directory")
	}

	return nil
}

// sanityCheckRepo tries to make sure that the repo dir is a valid git
// working copy. remote URLs are not checked here as resetRemotes
// re-creates them on every run
func (r *Repository) sanityCheckRepo(ctx context.Context) bool {
	// If it is empty, we are done.
	if empty, err := utils.DirIsEmpty(r.dir); err != nil {
		r.log.Error("can't list repo directory", "path", r.dir, "err", err)
		return false
	} else if empty {
		r.log.Info("repo directory is empty", "path", r.dir)
		return false
	}

	// make sure repo dir is a working copy and not a bare repository
	// git rev-parse --is-inside-work-tree
	if ok, err := r.git(ctx, nil, "rev-parse", "--is-inside-work-tree"); err != nil {
		r.log.Error("unable to verify work tree", "path", r.dir, "err", err)
		return false
	} else if ok != "true" {
		r.log.Error("repo is not a working copy", "path", r.dir)
		return false
	}

	// Check that this is actually the root of the repo.
	// git rev-parse --show-toplevel
	if root, err := r.git(ctx, nil, "rev-parse", "--show-toplevel"); err != nil {
		r.log.Error("can't get repo top level dir", "path", r.dir, "err", err)
		return false
	} else if root != r.dir {
		r.log.Error("repo directory is under another repo", "path", r.dir, "parent", root)
		return false
	}

	// Consistency-check the repo.  Don't use --verbose because it can be
	// REALLY verbose.
	// git fsck --no-progress --connectivity-only
	if _, err := r.git(ctx, nil, "fsck", "--no-progress", "--connectivity-only"); err != nil {
		r.log.Error("repo fsck failed", "path", r.dir, "err", err)
		return false
	}

	return true
}

// resetRemotes removes existing origin and mirror remote entries (ignoring
// absence) and re-adds them pointing at configured URLs. remote URLs always
// match current config regardless of prior run state, discarding drift or
// stale credentials embedded in remote URLs
func (r *Repository) resetRemotes(ctx context.Context) error {
	// git remote
	out, err := r.git(ctx, nil, "remote")
	if err != nil {
		return fmt.Errorf("unable to list remotes err:%w", err)
	}
	existing := strings.Fields(out)

	for _, rem := range []*remote{r.origin, r.mirror} {
		if slices.Contains(existing, rem.name) {
			// git remote remove <name>
			if _, err := r.git(ctx, nil, "remote", "remove", rem.name); err != nil {
				return fmt.Errorf("unable to remove remote '%s' err:%w", rem.name, err)
			}
		}
		// git remote add <name> <url>
		if _, err := r.git(ctx, nil, "remote", "add", rem.name, rem.url); err != nil {
			return fmt.Errorf("unable to add remote '%s' err:%w", rem.name, err)
		}
	}

	return nil
}

// clearMergeState deletes leftover merge-in-progress marker of a previous
// failed run and, if unmerged paths remain in the index, rolls the working
// copy back to the branch tip discarding untracked files
func (r *Repository) clearMergeState(ctx context.Context) error {
	// git rev-parse --absolute-git-dir
	gitDir, err := r.git(ctx, nil, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return fmt.Errorf("unable to get git dir err:%w", err)
	}

	if err := os.Remove(filepath.Join(gitDir, "MERGE_HEAD")); err == nil {
		r.log.Info("removed leftover merge head of a previous run")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("unable to remove merge head err:%w", err)
	}

	entries, err := r.statusEntries(ctx)
	if err != nil {
		return err
	}

	for _, ps := range entries {
		if !ps.Unmerged() {
			continue
		}
		r.log.Info("unmerged paths left behind by a previous run, rolling back", "path", ps.Path)
		// git reset -q --hard HEAD
		if _, err := r.git(ctx, nil, "reset", "-q", "--hard", "HEAD"); err != nil {
			return fmt.Errorf("unable to reset working copy err:%w", err)
		}
		// git clean -q -f -d
		if _, err := r.git(ctx, nil, "clean", "-q", "-f", "-d"); err != nil {
			return fmt.Errorf("unable to clean working copy err:%w", err)
		}
		break
	}

	return nil
}

// syncBranch fetches both remotes and force-resets the local branch to
// origin's tip with tracking semantics. local-only commits not yet pushed
// are discarded from the branch pointer, origin is the base truth
func (r *Repository) syncBranch(ctx context.Context) error {
	for _, rem := range []*remote{r.origin, r.mirror} {
		// git fetch <name> --prune --no-progress --no-auto-gc
		if _, err := r.git(ctx, r.authEnv(ctx, rem), "fetch", rem.name, "--prune", "--no-progress", "--no-auto-gc"); err != nil {
			return fmt.Errorf("unable to fetch remote '%s' err:%w", rem.name, err)
		}
	}

	exists, err := r.remoteBranchExists(ctx, r.origin)
	if err != nil {
		return err
	}

	if !exists {
		// origin does not have the branch yet, keep local tip and
		// let publish create it
		r.log.Info("branch not found on origin, keeping local tip", "branch", r.branch)
		// git checkout -q -B <branch>
		if _, err := r.git(ctx, nil, "checkout", "-q", "-B", r.branch); err != nil {
			return fmt.Errorf("unable to checkout branch err:%w", err)
		}
		return nil
	}

	// git checkout -q -B <branch> --track origin/<branch>
	if _, err := r.git(ctx, nil, "checkout", "-q", "-B", r.branch, "--track", r.origin.name+"/"+r.branch); err != nil {
		return fmt.Errorf("unable to checkout tracking branch err:%w", err)
	}

	return nil
}

// remoteBranchExists returns whether the replicated branch exists on the
// given remote's fetched refs
func (r *Repository) remoteBranchExists(ctx context.Context, rem *remote) (bool, error) {
	ref := fmt.Sprintf("refs/remotes/%s/%s", rem.name, r.branch)
	// git for-each-ref --format=%(refname) <ref>
	out, err := r.git(ctx, nil, "for-each-ref", "--format=%(refname)", ref)
	if err != nil {
		return false, fmt.Errorf("unable to list remote refs err:%w", err)
	}
	return out != "", nil
}

// mergeFrom attempts a merge of the remote's branch into the current
// branch. conflicts are resolved deterministically in favour of the local
// (ours) content, locally deleted paths stay deleted. the resolution is
// committed with the given fixed message
func (r *Repository) mergeFrom(ctx context.Context, rem *remote, msg string) (MergeResult, error) {
	exists, err := r.remoteBranchExists(ctx, rem)
	if err != nil {
		return MergeResult{Outcome: MergeFailed}, err
	}
	if !exists {
		r.log.Debug("branch not found on remote, nothing to merge", "remote", rem.name, "branch", r.branch)
		return MergeResult{Outcome: MergeUpToDate}, nil
	}

	before, err := r.hash(ctx, "HEAD")
	if err != nil {
		return MergeResult{Outcome: MergeFailed}, err
	}

	ref := rem.name + "/" + r.branch
	// git merge --no-edit --no-stat <remote>/<branch>
	if _, err := r.git(ctx, r.identityEnvs(), "merge", "--no-edit", "--no-stat", ref); err == nil {
		after, err := r.hash(ctx, "HEAD")
		if err != nil {
			return MergeResult{Outcome: MergeFailed}, err
		}
		if after == before {
			return MergeResult{Outcome: MergeUpToDate}, nil
		}
		r.log.Info("merged remote branch", "remote", rem.name, "branch", r.branch)
		return MergeResult{Outcome: MergeClean}, nil
	} else {
		unmerged, serr := r.unmergedEntries(ctx)
		if serr != nil {
			return MergeResult{Outcome: MergeFailed}, errors.Join(err, serr)
		}

		if len(unmerged) == 0 {
			// not a conflict, merge failed before starting
			// (eg. unrelated histories on a re-created mirror)
			// git merge --abort
			if _, aerr := r.git(ctx, nil, "merge", "--abort"); aerr != nil {
				r.log.Log(ctx, -8, "no in-progress merge to abort", "err", aerr)
			}
			return MergeResult{Outcome: MergeFailed}, err
		}

		resolved, rerr := r.resolveConflicts(ctx, unmerged)
		if rerr != nil {
			return MergeResult{Outcome: MergeFailed}, rerr
		}

		// git commit -q -m <msg>
		if _, cerr := r.git(ctx, r.identityEnvs(), "commit", "-q", "-m", msg); cerr != nil {
			return MergeResult{Outcome: MergeFailed}, fmt.Errorf("unable to commit resolution err:%w", cerr)
		}

		r.log.Info("resolved merge conflicts", "remote", rem.name, "paths", resolved)
		recordResolvedConflicts(r.origin.gitURL.Repo, rem.name, len(resolved))
		return MergeResult{Outcome: MergeResolved, ResolvedPaths: resolved}, nil
	}
}

// resolveConflicts resolves every unmerged path in favour of the local
// (ours) side. a path with no local side, or one deleted from the working
// tree, gets its removal staged instead
func (r *Repository) resolveConflicts(ctx context.Context, unmerged []PathStatus) ([]string, error) {
	var resolved []string

	for _, ps := range unmerged {
		deleted := ps.oursAbsent()
		if !deleted {
			if _, err := os.Stat(filepath.Join(r.dir, ps.Path)); os.IsNotExist(err) {
				deleted = true
			} else if err != nil {
				return resolved, fmt.Errorf("unable to stat conflicted path '%s' err:%w", ps.Path, err)
			}
		}

		if deleted {
			// git rm -q -f -- <path>
			if _, err := r.git(ctx, nil, "rm", "-q", "-f", "--", ps.Path); err != nil {
				return resolved, fmt.Errorf("unable to stage removal of '%s' err:%w", ps.Path, err)
			}
		} else {
			// git checkout -q --ours -- <path>
			if _, err := r.git(ctx, nil, "checkout", "-q", "--ours", "--", ps.Path); err != nil {
				return resolved, fmt.Errorf("unable to keep local version of '%s' err:%w", ps.Path, err)
			}
			// git add -- <path>
			if _, err := r.git(ctx, nil, "add", "--", ps.Path); err != nil {
				return resolved, fmt.Errorf("unable to stage '%s' err:%w", ps.Path, err)
			}
		}

		resolved = append(resolved, ps.Path)
	}

	return resolved, nil
}

// publish pushes the branch to origin if local state diverged from it and
// always force-pushes the branch to the mirror remote. an origin push
// failure does not prevent the mirror force-push, both errors are
// reported joined
func (r *Repository) publish(ctx context.Context) error {
	var errs []error

	clean, err := r.workingTreeClean(ctx)
	if err != nil {
		return err
	}

	ahead, err := r.commitsAhead(ctx)
	if err != nil {
		return err
	}

	if clean && ahead == 0 {
		r.log.Info("origin already has local state, skipping push", "branch", r.branch)
	} else {
		// non-forced, origin history is never rewritten
		// git push origin <branch>
		if _, err := r.git(ctx, r.authEnv(ctx, r.origin), "push", r.origin.name, r.branch); err != nil {
			errs = append(errs, fmt.Errorf("unable to push to origin err:%w", err))
		}
	}

	// the mirror's branch is always force overwritten
	// git push --force mirror <branch>
	if _, err := r.git(ctx, r.authEnv(ctx, r.mirror), "push", "--force", r.mirror.name, r.branch); err != nil {
		errs = append(errs, fmt.Errorf("unable to force push to mirror err:%w", err))
	}

	return errors.Join(errs...)
}

// workingTreeClean returns whether the working tree has any uncommitted
// differences versus the last commit. untracked files are not counted
func (r *Repository) workingTreeClean(ctx context.Context) (bool, error) {
	entries, err := r.statusEntries(ctx)
	if err != nil {
		return false, err
	}
	for _, ps := range entries {
		if !ps.Untracked() {
			return false, nil
		}
	}
	return true, nil
}

// commitsAhead returns the number of local commits on the branch which are
// not reachable from origin's branch. if origin does not have the branch
// every local commit counts
func (r *Repository) commitsAhead(ctx context.Context) (int, error) {
	rng := r.branch
	if exists, err := r.remoteBranchExists(ctx, r.origin); err != nil {
		return 0, err
	} else if exists {
		rng = fmt.Sprintf("%s/%s..%s", r.origin.name, r.branch, r.branch)
	}

	// git rev-list --count [origin/<branch>..]<branch>
	out, err := r.git(ctx, nil, "rev-list", "--count", rng)
	if err != nil {
		return 0, fmt.Errorf("unable to count commits err:%w", err)
	}

	count, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("unable to parse rev-list output:%q err:%w", out, err)
	}
	return count, nil
}

// maintenance runs git's garbage collection based on configured gc mode
func (r *Repository) maintenance(ctx context.Context) error {
	if r.gitGC == GCOff {
		return nil
	}

	args := []string{"gc"}
	switch r.gitGC {
	case GCAuto:
		args = append(args, "--auto")
	case GCAlways:
		// no extra flags
	case GCAggressive:
		args = append(args, "--aggressive")
	}
	if _, err := r.git(ctx, nil, args...); err != nil {
		return err
	}
	return nil
}
