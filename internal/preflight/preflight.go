package preflight

import (
	"context"

	"chromaflow/internal/config"
	"chromaflow/internal/store"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check that applies to cfg. remote may be nil when
// the store could not be opened; the store check then fails.
func RunAll(ctx context.Context, cfg *config.Config, remote store.Remote) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckStore(ctx, cfg.StoreDSN(), remote),
	}
	if path := cfg.CachePath(); path != "" {
		results = append(results, CheckCache(ctx, path))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
