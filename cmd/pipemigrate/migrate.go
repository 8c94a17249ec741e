package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bgricker/pipemigrate/internal/gitops"
	"github.com/bgricker/pipemigrate/internal/report"
)

// gitBinary overrides the git executable; tests point it at a missing one.
var gitBinary string

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite pipelines to run Black Duck instead of Polaris or Coverity",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	flags := cmd.Flags()
	flags.Bool("commit", false, "commit rewritten pipelines")
	flags.Bool("push", false, "push the commit (implies --commit)")
	flags.String("remote", "origin", "remote to push to")
	flags.String("branch", "", "branch to push to (defaults to the upstream)")
	flags.String("message", "", "commit message")
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, false)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	ctx := cmd.Context()
	results, summary := s.runner.Run(ctx, s.paths)
	if err := render(cmd, s, results, summary); err != nil {
		return err
	}

	var failed error
	if summary.ExitCode != 0 {
		failed = errors.New("one or more pipelines could not be parsed")
	}
	if s.cfg.DryRun || !(s.cfg.Git.Commit || s.cfg.Git.Push) {
		return failed
	}
	return errors.Join(failed, publish(ctx, s, results))
}

func publish(ctx context.Context, s *session, results []report.FileResult) error {
	var updated []string
	for _, res := range results {
		if res.Status == report.StatusUpdated {
			updated = append(updated, res.Path)
		}
	}
	if len(updated) == 0 {
		s.logger.Info("no pipelines changed, skipping commit")
		return nil
	}

	git := gitops.NewClient(s.root, s.logger)
	if gitBinary != "" {
		git.Binary = gitBinary
	}
	if err := git.Commit(ctx, updated, s.cfg.Git.Message); err != nil {
		if errors.Is(err, gitops.ErrNothingToCommit) {
			s.logger.Info("nothing to commit")
			return nil
		}
		if gitops.Missing(err) {
			return fmt.Errorf("commit migrated pipelines: git executable not found; install git or drop --commit/--push: %w", err)
		}
		return fmt.Errorf("commit migrated pipelines: %w", err)
	}
	s.logger.Debug("committed pipelines", zap.Int("files", len(updated)))

	if !s.cfg.Git.Push {
		return nil
	}
	if err := git.Push(ctx, s.cfg.Git.Remote, s.cfg.Git.Branch); err != nil {
		return fmt.Errorf("push migrated pipelines: %w", err)
	}
	return nil
}
