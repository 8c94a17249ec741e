package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/bgricker/pipemigrate/internal/discovery"
	"github.com/bgricker/pipemigrate/internal/pipeline"
	"github.com/bgricker/pipemigrate/internal/provider"
	"github.com/bgricker/pipemigrate/internal/provider/azure"
	"github.com/bgricker/pipemigrate/internal/provider/github"
	"github.com/bgricker/pipemigrate/internal/provider/jenkins"
	"github.com/bgricker/pipemigrate/internal/report"
	"github.com/bgricker/pipemigrate/internal/rewrite"
)

// BackupTimeLayout names timestamped backups.
const BackupTimeLayout = "20060102T150405"

// Options configure how the runner processes files.
type Options struct {
	Root            string
	DryRun          bool
	Backup          bool
	TimestampBackup bool
	// Provider forces a dialect for every file; empty or auto detects it
	// from each path.
	Provider  provider.Kind
	Migrators map[provider.Kind]provider.Migrator
	Now       func() time.Time
	Logger    *zap.Logger
}

// Runner migrates pipeline files one at a time.
type Runner struct {
	opts Options
}

// Migrators returns a migrator per supported dialect, all sharing rw.
func Migrators(rw *rewrite.Rewriter) map[provider.Kind]provider.Migrator {
	return map[provider.Kind]provider.Migrator{
		provider.KindAzure:   azure.NewMigrator(rw),
		provider.KindGitHub:  github.NewMigrator(rw),
		provider.KindJenkins: jenkins.NewMigrator(rw),
	}
}

// New creates a runner with the supplied options.
func New(opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Provider == "" {
		opts.Provider = provider.KindAuto
	}
	return &Runner{opts: opts}
}

// Run migrates every path in order. A failing file is recorded and the batch
// moves on; the returned summary carries a non-zero exit code when any file
// could not be parsed or rewritten.
func (r *Runner) Run(ctx context.Context, paths []string) ([]report.FileResult, report.Summary) {
	var summary report.Summary
	results := make([]report.FileResult, 0, len(paths))

	for _, p := range paths {
		start := r.opts.Now()
		var res report.FileResult
		if err := ctx.Err(); err != nil {
			res = report.FileResult{Path: p, Status: report.StatusFailed, Error: err.Error(), DryRun: r.opts.DryRun}
		} else {
			res = r.runFile(p)
		}
		res.Duration = r.opts.Now().Sub(start)
		res.DurationMS = res.Duration.Milliseconds()

		log := r.opts.Logger.With(zap.String("path", p), zap.String("status", res.Status))
		if res.Status == report.StatusFailed {
			log.Warn("pipeline not migrated", zap.String("error", res.Error))
		} else {
			log.Debug("pipeline processed", zap.String("kind", res.Kind), zap.Int("removed", res.Removed))
		}

		summary.Add(res)
		results = append(results, res)
	}
	return results, summary
}

func (r *Runner) runFile(path string) report.FileResult {
	kind := r.opts.Provider
	if kind == provider.KindAuto {
		kind = provider.Detect(path)
	}
	res := report.FileResult{Path: path, Kind: string(kind), DryRun: r.opts.DryRun}

	fail := func(err error) report.FileResult {
		res.Status = report.StatusFailed
		res.Error = err.Error()
		res.Structural = errors.Is(err, pipeline.ErrMalformedDocument)
		return res
	}

	migrator, ok := r.opts.Migrators[kind]
	if !ok {
		return fail(fmt.Errorf("no migrator for provider %q", kind))
	}

	full := r.resolve(path)
	info, err := os.Stat(full)
	if err != nil {
		return fail(fmt.Errorf("stat %q: %w", path, err))
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return fail(fmt.Errorf("read %q: %w", path, err))
	}

	outcome, err := migrator.Migrate(path, content)
	if err != nil {
		return fail(err)
	}
	res.Mode = outcome.Mode
	res.Removed = outcome.Removed
	res.Inserted = outcome.Inserted
	res.AlreadyMigrated = outcome.AlreadyMigrated
	res.Matches = outcome.Matches

	switch {
	case !outcome.Changed:
		res.Status = report.StatusUnchanged
		return res
	case r.opts.DryRun:
		res.Status = report.StatusMatched
		return res
	}

	if r.opts.Backup {
		backup := r.backupPath(full)
		if err := os.WriteFile(backup, content, info.Mode().Perm()); err != nil {
			return fail(fmt.Errorf("write backup for %q: %w", path, err))
		}
		res.Backup = r.display(backup)
	}
	if err := os.WriteFile(full, outcome.Content, info.Mode().Perm()); err != nil {
		return fail(fmt.Errorf("write %q: %w", path, err))
	}
	res.Status = report.StatusUpdated
	return res
}

func (r *Runner) resolve(path string) string {
	if filepath.IsAbs(path) || r.opts.Root == "" {
		return path
	}
	return filepath.Join(r.opts.Root, path)
}

func (r *Runner) display(full string) string {
	if r.opts.Root == "" {
		return full
	}
	rel, err := filepath.Rel(r.opts.Root, full)
	if err != nil {
		return full
	}
	return rel
}

func (r *Runner) backupPath(full string) string {
	if r.opts.TimestampBackup {
		return fmt.Sprintf("%s.%s%s", full, r.opts.Now().Format(BackupTimeLayout), discovery.BackupSuffix)
	}
	return full + discovery.BackupSuffix
}
