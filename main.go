package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"github.com/utilitywarehouse/git-replicate/replicator"
	"github.com/utilitywarehouse/git-replicate/repository"
)

const metricsNamespace = "git_replicate"

var (
	loggerLevel = new(slog.LevelVar)
	logger      *slog.Logger

	levelStrings = map[string]slog.Level{
		"trace": slog.Level(-8),
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}

	gitExecutablePath = "git"

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Sources: cli.EnvVars("GIT_REPLICATE_CONFIG"),
			Value:   "/etc/git-replicate/config.yaml",
			Usage:   "Absolute path to the config file.",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Sources: cli.EnvVars("LOG_LEVEL"),
			Value:   "info",
			Usage:   "Log level",
		},
		&cli.BoolFlag{
			Name:    "watch-config",
			Sources: cli.EnvVars("GIT_REPLICATE_WATCH_CONFIG"),
			Value:   true,
			Usage:   "Watch the config file for changes and reload repositories on the fly.",
		},
		&cli.StringFlag{
			Name:    "http-bind-address",
			Sources: cli.EnvVars("GIT_REPLICATE_HTTP_BIND"),
			Value:   ":9001",
			Usage:   "The address the metric and webhook endpoints bind to.",
		},
		&cli.BoolFlag{
			Name:    "once",
			Sources: cli.EnvVars("GIT_REPLICATE_ONCE"),
			Usage:   "Replicate every configured repository exactly once and exit.",
		},
		&cli.StringFlag{
			Name:    "github-webhook-secret",
			Sources: cli.EnvVars("GIT_REPLICATE_GITHUB_WEBHOOK_SECRET"),
			Usage:   "Shared secret to validate github push webhooks. Webhook endpoint is disabled if not set.",
		},

		// single repository mode, replaces the config file
		&cli.StringFlag{
			Name:    "origin",
			Sources: cli.EnvVars("GIT_REPLICATE_ORIGIN"),
			Usage:   "Origin URL for single repository mode, if set config file is not read.",
		},
		&cli.StringFlag{
			Name:    "mirror",
			Sources: cli.EnvVars("GIT_REPLICATE_MIRROR"),
			Usage:   "Mirror URL for single repository mode.",
		},
		&cli.StringFlag{
			Name:    "branch",
			Sources: cli.EnvVars("GIT_REPLICATE_BRANCH"),
			Usage:   "Branch to replicate in single repository mode.",
		},
		&cli.StringFlag{
			Name:    "author-name",
			Sources: cli.EnvVars("GIT_REPLICATE_AUTHOR_NAME"),
			Usage:   "Commit identity name used for conflict resolution commits.",
		},
		&cli.StringFlag{
			Name:    "author-email",
			Sources: cli.EnvVars("GIT_REPLICATE_AUTHOR_EMAIL"),
			Usage:   "Commit identity email used for conflict resolution commits.",
		},
	}
)

func init() {
	loggerLevel.Set(slog.LevelInfo)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: loggerLevel,
	}))
}

// singleRepoConfig builds pool config for the 1 repository given on the
// command line or via GIT_REPLICATE_* env vars
func singleRepoConfig(c *cli.Command) *replicator.Config {
	return &replicator.Config{
		Repositories: []repository.Config{{
			Origin: c.String("origin"),
			Mirror: c.String("mirror"),
			Branch: c.String("branch"),
			Identity: repository.Identity{
				Name:  c.String("author-name"),
				Email: c.String("author-email"),
			},
		}},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "git-replicate",
		Usage: "git-replicate is a tool to periodically replicate branches from a primary remote to a secondary remote.",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {

			// set log level according to argument
			if v, ok := levelStrings[strings.ToLower(c.String("log-level"))]; ok {
				loggerLevel.Set(v)
			}

			var conf *replicator.Config
			var err error

			if c.String("origin") != "" {
				conf = singleRepoConfig(c)
			} else {
				conf, err = parseConfigFile(c.String("config"))
				if err != nil {
					logger.Error("unable to parse git-replicate config file", "err", err)
					os.Exit(1)
				}
			}

			conf = applyGitDefaults(conf)

			// path is needed by git for transport helpers and hooks
			gitENV := []string{fmt.Sprintf("PATH=%s", os.Getenv("PATH"))}

			repository.EnableMetrics(metricsNamespace, prometheus.DefaultRegisterer)

			appCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			repos, err := replicator.New(appCtx, *conf, logger.With("logger", "git-replicate"), gitExecutablePath, gitENV)
			if err != nil {
				logger.Error("could not create repository pool", "err", err)
				os.Exit(1)
			}

			if c.Bool("once") {
				if err := repos.ReplicateAll(appCtx, conf.Defaults.ReplicationTimeout); err != nil {
					logger.Error("replication failed", "err", err)
					os.Exit(1)
				}
				return nil
			}

			// start replication Loop
			repos.StartLoop()

			// clean up working copies of repositories removed from
			// config while the app was down
			cleanupOrphanedRepos(conf, repos)

			if c.Bool("watch-config") && c.String("origin") == "" {
				prometheus.MustRegister(configSuccess, configSuccessTime)
				go WatchConfig(appCtx, c.String("config"), true, 10*time.Second, func(newConfig *replicator.Config) bool {
					return ensureConfig(repos, newConfig)
				})
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("ok"))
			})
			if secret := c.String("github-webhook-secret"); secret != "" {
				mux.Handle("/github-webhook", &GithubWebhookHandler{
					repoPool: repos,
					secret:   secret,
					log:      logger.With("logger", "webhook"),
				})
			}

			srv := &http.Server{Addr: c.String("http-bind-address"), Handler: mux}
			go func() {
				logger.Info("starting HTTP server", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server failed", "err", err)
					os.Exit(1)
				}
			}()

			//listenForShutdown
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			logger.Info("Shutting down")

			cancel()

			sCtx, sCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer sCancel()
			if err := srv.Shutdown(sCtx); err != nil {
				logger.Error("HTTP server shutdown failed", "err", err)
			}

			// wait for running replications to finish
			<-repos.Stopped

			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("failed to run app", "err", err)
		os.Exit(1)
	}
}
