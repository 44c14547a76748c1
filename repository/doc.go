// Package repository replicates a single branch of a remote repository
// ("origin") into a local working copy and force-publishes the result to a
// secondary remote ("mirror").
//
// Origin is treated as the source of truth. On every replication run the
// local branch is force-reset to origin's tip, then the mirror remote's
// branch is merged in. Merge conflicts are resolved deterministically:
// the mirror's conflicting changes are always discarded in favour of the
// origin derived content, and locally deleted paths stay deleted.
// Origin's history is never force-rewritten, the mirror's always is.
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
//	repo, err := repository.New(repoConf, "", nil, logger)
//	if err != nil {
//		panic(err)
//	}
package repository
