package replicator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/utilitywarehouse/git-replicate/giturl"
	"github.com/utilitywarehouse/git-replicate/internal/lock"
	"github.com/utilitywarehouse/git-replicate/repository"
)

var (
	ErrExist    = errors.New("repo already exist")
	ErrNotExist = errors.New("repo does not exist")
)

// RepoPool represents the collection of replicated repositories
// it provides simple wrapper around Repository methods.
// A RepoPool is safe for concurrent use by multiple goroutines.
type RepoPool struct {
	ctx        context.Context
	lock       lock.RWMutex
	log        *slog.Logger
	repos      []*repository.Repository
	cmd        string
	commonENVs []string
	Stopped    chan bool
}

// New will create repository pool based on given config.
// Remotes will not be replicated until either Replicate() or StartLoop()
// is called
func New(ctx context.Context, conf Config, log *slog.Logger, gitExec string, commonENVs []string) (*RepoPool, error) {
	if err := conf.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}
	repoCtx, repoCancel := context.WithCancel(ctx)

	rp := &RepoPool{
		ctx:        repoCtx,
		log:        log,
		cmd:        gitExec,
		commonENVs: commonENVs,
		Stopped:    make(chan bool),
	}

	// start shutdown watcher
	go func() {
		defer func() {
			close(rp.Stopped)
		}()

		// wait for shutdown signal
		<-ctx.Done()

		// signal repository
		repoCancel()

		rp.lock.RLock()
		defer rp.lock.RUnlock()

		for {
			time.Sleep(time.Second)
			// check if any repo replication is still running
			var running bool
			for _, repo := range rp.repos {
				if repo.IsRunning() {
					running = true
					break
				}
			}

			if !running {
				return
			}
		}
	}()

	for _, repoConf := range conf.Repositories {
		if err := rp.AddRepository(repoConf); err != nil {
			return nil, err
		}
	}

	return rp, nil
}

// AddRepository will add given repository to the pool.
// Remotes will not be replicated until either Replicate() or StartLoop()
// is called
func (rp *RepoPool) AddRepository(repoConf repository.Config) error {
	originURL := giturl.NormaliseURL(repoConf.Origin)
	if repo, _ := rp.Repository(originURL); repo != nil {
		return ErrExist
	}

	rp.lock.Lock()
	defer rp.lock.Unlock()

	repo, err := repository.New(repoConf, rp.cmd, rp.commonENVs, rp.log)
	if err != nil {
		return err
	}
	rp.repos = append(rp.repos, repo)

	return nil
}

// ReplicateAll will trigger replication on every repo in foreground with
// given timeout. It will error out if any of the repository replication errors.
// Ideally ReplicateAll should be used for the first replication cycle to
// ensure repositories are successfully replicated
func (rp *RepoPool) ReplicateAll(ctx context.Context, timeout time.Duration) error {
	rp.lock.RLock()
	defer rp.lock.RUnlock()

	for _, repo := range rp.repos {
		rCtx, cancel := context.WithTimeout(ctx, timeout)
		err := repo.Replicate(rCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("repository replication failed err:%w", err)
		}
	}

	return nil
}

// Replicate is wrapper around repositories Replicate method
func (rp *RepoPool) Replicate(ctx context.Context, origin string) error {
	repo, err := rp.Repository(origin)
	if err != nil {
		return err
	}

	return repo.Replicate(ctx)
}

// QueueReplicateRun is wrapper around repositories QueueReplicateRun method
func (rp *RepoPool) QueueReplicateRun(origin string) error {
	repo, err := rp.Repository(origin)
	if err != nil {
		return err
	}

	repo.QueueReplicateRun()
	return nil
}

// StartLoop will start replication loop on all repositories
// if its not already started
func (rp *RepoPool) StartLoop() {
	rp.lock.RLock()
	defer rp.lock.RUnlock()

	for _, repo := range rp.repos {
		if !repo.IsRunning() {
			go repo.StartLoop(rp.ctx)
			continue
		}
	}
}

// Repository will return Repository object based on given origin URL
func (rp *RepoPool) Repository(origin string) (*repository.Repository, error) {
	gitURL, err := giturl.Parse(origin)
	if err != nil {
		return nil, err
	}

	rp.lock.RLock()
	defer rp.lock.RUnlock()

	for _, repo := range rp.repos {
		// err can be ignored as origin string from repo object will always be valid
		repoURL, _ := giturl.Parse(repo.Origin())

		if repoURL.Equals(gitURL) {
			return repo, nil
		}
	}
	return nil, ErrNotExist
}

// RepositoriesOrigin returns origin URLs of all the repositories
func (rp *RepoPool) RepositoriesOrigin() []string {
	rp.lock.RLock()
	defer rp.lock.RUnlock()

	var urls []string
	for _, repo := range rp.repos {
		urls = append(urls, repo.Origin())
	}
	return urls
}

// RepositoriesDirPath returns local paths of all the replicated repositories
func (rp *RepoPool) RepositoriesDirPath() []string {
	rp.lock.RLock()
	defer rp.lock.RUnlock()

	var paths []string
	for _, repo := range rp.repos {
		paths = append(paths, repo.Directory())
	}
	return paths
}

// RemoveRepository will remove given repository from the pool and delete
// its local working copy.
func (rp *RepoPool) RemoveRepository(origin string) error {
	rp.lock.Lock()
	defer rp.lock.Unlock()

	for i, repo := range rp.repos {
		ok, err := giturl.SameRawURL(repo.Origin(), origin)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		rp.log.Info("removing replicated repository", "origin", giturl.Redact(repo.Origin()))

		rp.repos = slices.Delete(rp.repos, i, i+1)

		repo.StopLoop()

		return os.RemoveAll(repo.Directory())
	}

	return ErrNotExist
}

// Hash is wrapper around repositories Hash method
func (rp *RepoPool) Hash(ctx context.Context, origin, ref string) (string, error) {
	repo, err := rp.Repository(origin)
	if err != nil {
		return "", err
	}
	return repo.Hash(ctx, ref)
}

// LogMsg is wrapper around repositories LogMsg method
func (rp *RepoPool) LogMsg(ctx context.Context, origin, ref string) (string, error) {
	repo, err := rp.Repository(origin)
	if err != nil {
		return "", err
	}
	return repo.LogMsg(ctx, ref)
}
