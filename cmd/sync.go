package cmd

import (
	"context"
	"log/slog"

	"github.com/adalundhe/uni/core/mirror"
	"github.com/adalundhe/uni/core/storage"
)

// runPool synchronizes every descriptor of cfg with the given parallelism.
func runPool(ctx context.Context, cfg *runConfig, workers int, fork bool) mirror.Report {
	if err := storage.EnsureDir(cfg.layout.Root, 0755); err != nil {
		logger.Warn("creating root directory failed",
			slog.String("root", cfg.layout.Root),
			slog.String("error", err.Error()))
	}

	pool := mirror.NewPool(cfg.newSynchronizer(fork), workers)
	return pool.RunAll(ctx, cfg.store.Descriptors())
}
