package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the repository-level configuration file.
const FileName = ".pipemigrate.yml"

// Config captures CLI options sourced from config files or flags.
type Config struct {
	Provider string   `yaml:"provider"`
	Files    []string `yaml:"files"`
	Include  []string `yaml:"include"`

	Target                 []string `yaml:"target"`
	Markers                []string `yaml:"markers"`
	LegacyVariablePrefixes []string `yaml:"legacy_variable_prefixes"`
	Replacement            string   `yaml:"replacement"`

	Format          string `yaml:"format"`
	DryRun          bool   `yaml:"dry_run"`
	Verbose         bool   `yaml:"verbose"`
	Backup          *bool  `yaml:"backup"`
	TimestampBackup bool   `yaml:"timestamp_backup"`

	Git GitConfig `yaml:"git"`
}

// GitConfig controls what happens to migrated files after they are written.
type GitConfig struct {
	Commit  bool   `yaml:"commit"`
	Push    bool   `yaml:"push"`
	Remote  string `yaml:"remote"`
	Branch  string `yaml:"branch"`
	Message string `yaml:"message"`
}

const (
	// ProviderAuto selects the dialect from each file path.
	ProviderAuto = "auto"

	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"

	// DefaultCommitMessage is used when neither flags nor config name one.
	DefaultCommitMessage = "Replace Polaris/Coverity scans with Black Duck"
)

// DefaultTarget matches the legacy scanners being replaced.
var DefaultTarget = []string{"polaris", "coverity"}

// DefaultInclude lists the globs used when no files are given explicitly.
var DefaultInclude = []string{
	"azure-pipelines*.yml",
	"azure-pipelines*.yaml",
	"*.azure-pipelines.yml",
	".azure-pipelines/*.yml",
	".azure-pipelines/*.yaml",
	"pipelines/*.yml",
	"pipelines/*.yaml",
	".github/workflows/*.yml",
	".github/workflows/*.yaml",
	"Jenkinsfile*",
	"*.jenkinsfile",
	"*.groovy",
}

// Default returns the baseline configuration used when no flags or config file specify values.
func Default() Config {
	return Config{
		Provider: ProviderAuto,
		Include:  append([]string{}, DefaultInclude...),
		Target:   append([]string{}, DefaultTarget...),
		Format:   FormatPretty,
		Git: GitConfig{
			Remote:  "origin",
			Message: DefaultCommitMessage,
		},
	}
}

// BackupEnabled reports whether originals are copied aside before writing.
// Backups are on unless switched off explicitly.
func (c Config) BackupEnabled() bool {
	return c.Backup == nil || *c.Backup
}

// Load reads .pipemigrate.yml from the repository root when present. Missing files are ignored.
func Load(root string) (Config, error) {
	cfg := Default()
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg = merge(cfg, fileCfg)
	if cfg.Replacement != "" && !filepath.IsAbs(cfg.Replacement) {
		cfg.Replacement = filepath.Join(root, cfg.Replacement)
	}
	return cfg, nil
}

func merge(base, override Config) Config {
	out := base

	if override.Provider != "" {
		out.Provider = override.Provider
	}
	if len(override.Files) > 0 {
		out.Files = append([]string{}, override.Files...)
	}
	if len(override.Include) > 0 {
		out.Include = append([]string{}, override.Include...)
	}
	if len(override.Target) > 0 {
		out.Target = append([]string{}, override.Target...)
	}
	if len(override.Markers) > 0 {
		out.Markers = append([]string{}, override.Markers...)
	}
	if len(override.LegacyVariablePrefixes) > 0 {
		out.LegacyVariablePrefixes = append([]string{}, override.LegacyVariablePrefixes...)
	}
	if override.Replacement != "" {
		out.Replacement = override.Replacement
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.DryRun {
		out.DryRun = true
	}
	if override.Verbose {
		out.Verbose = true
	}
	if override.Backup != nil {
		v := *override.Backup
		out.Backup = &v
	}
	if override.TimestampBackup {
		out.TimestampBackup = true
	}

	if override.Git.Commit {
		out.Git.Commit = true
	}
	if override.Git.Push {
		out.Git.Push = true
	}
	if override.Git.Remote != "" {
		out.Git.Remote = override.Git.Remote
	}
	if override.Git.Branch != "" {
		out.Git.Branch = override.Git.Branch
	}
	if override.Git.Message != "" {
		out.Git.Message = override.Git.Message
	}

	return out
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.Provider.Set {
		cfg.Provider = flags.Provider.Value
	}
	if len(flags.Files.Values) > 0 {
		cfg.Files = append([]string{}, flags.Files.Values...)
	}
	if len(flags.Target.Values) > 0 {
		cfg.Target = append([]string{}, flags.Target.Values...)
	}
	if len(flags.Markers.Values) > 0 {
		cfg.Markers = append([]string{}, flags.Markers.Values...)
	}
	if flags.Replacement.Set {
		cfg.Replacement = flags.Replacement.Value
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.DryRun.Set {
		cfg.DryRun = flags.DryRun.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
	if flags.NoBackup.Set {
		backup := !flags.NoBackup.Value
		cfg.Backup = &backup
	}
	if flags.Commit.Set {
		cfg.Git.Commit = flags.Commit.Value
	}
	if flags.Push.Set {
		cfg.Git.Push = flags.Push.Value
	}
	if flags.Remote.Set {
		cfg.Git.Remote = flags.Remote.Value
	}
	if flags.Branch.Set {
		cfg.Git.Branch = flags.Branch.Value
	}
	if flags.Message.Set {
		cfg.Git.Message = flags.Message.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	Provider    StringFlag
	Files       SliceFlag
	Target      SliceFlag
	Markers     SliceFlag
	Replacement StringFlag
	Format      StringFlag
	DryRun      BoolFlag
	Verbose     BoolFlag
	NoBackup    BoolFlag

	Commit  BoolFlag
	Push    BoolFlag
	Remote  StringFlag
	Branch  StringFlag
	Message StringFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}
