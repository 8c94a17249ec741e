package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Report which pipelines would be migrated without writing them",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, true)
	if err != nil {
		return err
	}
	defer func() { _ = s.logger.Sync() }()

	results, summary := s.runner.Run(cmd.Context(), s.paths)
	if err := render(cmd, s, results, summary); err != nil {
		return err
	}
	if summary.ExitCode != 0 {
		return errors.New("one or more pipelines could not be parsed")
	}
	return nil
}
