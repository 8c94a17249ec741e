package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bgricker/pipemigrate/internal/config"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues
	var err error

	if values.Provider, err = stringFlag(flags, "provider"); err != nil {
		return values, err
	}
	if values.Files, err = sliceFlag(flags, "file"); err != nil {
		return values, err
	}
	if values.Target, err = sliceFlag(flags, "target"); err != nil {
		return values, err
	}
	if values.Markers, err = sliceFlag(flags, "marker"); err != nil {
		return values, err
	}
	if values.Replacement, err = stringFlag(flags, "replacement"); err != nil {
		return values, err
	}
	if values.Format, err = stringFlag(flags, "format"); err != nil {
		return values, err
	}
	if values.DryRun, err = boolFlag(flags, "dry-run"); err != nil {
		return values, err
	}
	if values.Verbose, err = boolFlag(flags, "verbose"); err != nil {
		return values, err
	}
	if values.NoBackup, err = boolFlag(flags, "no-backup"); err != nil {
		return values, err
	}

	// git flags only exist on migrate.
	if flags.Lookup("commit") == nil {
		return values, nil
	}
	if values.Commit, err = boolFlag(flags, "commit"); err != nil {
		return values, err
	}
	if values.Push, err = boolFlag(flags, "push"); err != nil {
		return values, err
	}
	if values.Remote, err = stringFlag(flags, "remote"); err != nil {
		return values, err
	}
	if values.Branch, err = stringFlag(flags, "branch"); err != nil {
		return values, err
	}
	if values.Message, err = stringFlag(flags, "message"); err != nil {
		return values, err
	}
	return values, nil
}

func stringFlag(flags *pflag.FlagSet, name string) (config.StringFlag, error) {
	if !flags.Changed(name) {
		return config.StringFlag{}, nil
	}
	v, err := flags.GetString(name)
	if err != nil {
		return config.StringFlag{}, fmt.Errorf("parse --%s: %w", name, err)
	}
	return config.StringFlag{Value: v, Set: true}, nil
}

func sliceFlag(flags *pflag.FlagSet, name string) (config.SliceFlag, error) {
	if !flags.Changed(name) {
		return config.SliceFlag{}, nil
	}
	v, err := flags.GetStringArray(name)
	if err != nil {
		return config.SliceFlag{}, fmt.Errorf("parse --%s: %w", name, err)
	}
	return config.SliceFlag{Values: append([]string{}, v...)}, nil
}

func boolFlag(flags *pflag.FlagSet, name string) (config.BoolFlag, error) {
	if !flags.Changed(name) {
		return config.BoolFlag{}, nil
	}
	v, err := flags.GetBool(name)
	if err != nil {
		return config.BoolFlag{}, fmt.Errorf("parse --%s: %w", name, err)
	}
	return config.BoolFlag{Value: v, Set: true}, nil
}
