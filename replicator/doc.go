// Package replicator periodically replicates branches from a primary
// remote to a secondary remote. It maintains a pool of repositories, each
// with its own local working copy, and keeps the secondary remote's branch
// force-overwritten with the merged state.
//
// # Usages
//
// please see examples below
//
// # Logging:
//
// package takes slog reference for logging and prints logs up to 'trace' level
//
// Example:
//
//	loggerLevel  = new(slog.LevelVar)
//	levelStrings = map[string]slog.Level{
//		"trace": slog.Level(-8),
//		"debug": slog.LevelDebug,
//		"info":  slog.LevelInfo,
//		"warn":  slog.LevelWarn,
//		"error": slog.LevelError,
//	}
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//		Level: loggerLevel,
//	}))
//	loggerLevel.Set(levelStrings["trace"])
//
//	repos, err := New(ctx, conf, logger.With("logger", "git-replicate"), "", nil)
//	if err != nil {
//		panic(err)
//	}
package replicator
