package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pipemigrate",
		Short:         "Pipemigrate replaces Polaris and Coverity scans with Black Duck in CI pipelines",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("root", "", "repository root to scan (defaults to the working directory)")
	persistent.String("provider", "", "pipeline dialect (auto|azure|github|jenkins)")
	persistent.StringArray("file", nil, "pipeline file to process (repeatable)")
	persistent.StringArray("target", nil, "pattern selecting steps to replace (repeatable, /regex/ allowed)")
	persistent.StringArray("marker", nil, "pattern identifying an existing replacement (repeatable)")
	persistent.String("replacement", "", "replacement template file")
	persistent.Bool("dry-run", false, "report matches without writing files")
	persistent.BoolP("verbose", "v", false, "log every file processed")
	persistent.Bool("no-backup", false, "do not keep a copy of rewritten files")
	persistent.String("format", "pretty", "output format (pretty|json)")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}
