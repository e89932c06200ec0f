package watcher

import (
	"context"
	"time"

	"github.com/ritzau/crystal-bonds/pkg/analysis"
	"github.com/ritzau/crystal-bonds/pkg/logging"
)

// Default debounce timings.
const (
	DefaultQuietPeriod = 300 * time.Millisecond
	DefaultMaxWait     = 2 * time.Second
)

// InputFiles maps each change type to the runner's configured file.
func InputFiles(opts analysis.Options) map[ChangeType]string {
	return map[ChangeType]string{
		ChangeTypeCrystal: opts.CrystalPath,
		ChangeTypeRadii:   opts.RadiiPath,
		ChangeTypeRules:   opts.RulesPath,
	}
}

// Watch re-runs r whenever one of its input files changes, until ctx is
// done. Failed runs are logged and the loop continues.
func Watch(ctx context.Context, r *analysis.Runner) error {
	fw, err := NewFileWatcher(InputFiles(r.Options()))
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}
	d := NewDebouncer(fw.Events(), DefaultQuietPeriod, DefaultMaxWait)
	d.Start(ctx)

	for batch := range d.Output() {
		ca := AnalyzeChanges(batch)
		if ca.Empty() || ctx.Err() != nil {
			continue
		}
		logging.Info("input files changed", "files", len(ca.ChangedFiles))
		// Errors are logged by the runner.
		_, _ = r.Run(ctx, ca.RunOptions())
	}
	return ctx.Err()
}
