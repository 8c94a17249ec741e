package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bgricker/pipemigrate/internal/batch"
	"github.com/bgricker/pipemigrate/internal/config"
	"github.com/bgricker/pipemigrate/internal/discovery"
	"github.com/bgricker/pipemigrate/internal/match"
	"github.com/bgricker/pipemigrate/internal/output"
	"github.com/bgricker/pipemigrate/internal/provider"
	"github.com/bgricker/pipemigrate/internal/replacement"
	"github.com/bgricker/pipemigrate/internal/report"
	"github.com/bgricker/pipemigrate/internal/rewrite"
)

// now is swapped in tests for stable durations.
var now = time.Now

// session bundles everything a command needs to process pipelines.
type session struct {
	root   string
	cfg    config.Config
	kind   provider.Kind
	paths  []string
	runner *batch.Runner
	logger *zap.Logger
}

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	root, err := resolveRoot(cmd)
	if err != nil {
		return config.Config{}, "", err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return config.Config{}, "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyFlags(&cfg, flags)

	return cfg, root, nil
}

// resolveRoot returns the absolute repository root: --root when given,
// otherwise the working directory.
func resolveRoot(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("root")
	if err != nil {
		return "", fmt.Errorf("parse --root: %w", err)
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("root %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %q is not a directory", dir)
	}
	return abs, nil
}

func newSession(cmd *cobra.Command, forceDryRun bool) (*session, error) {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if forceDryRun {
		cfg.DryRun = true
	}
	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty, config.FormatJSON:
	default:
		return nil, fmt.Errorf("unsupported format %q", cfg.Format)
	}

	kind, err := provider.ParseKind(cfg.Provider)
	if err != nil {
		return nil, err
	}
	rw, err := buildRewriter(cfg)
	if err != nil {
		return nil, err
	}

	paths, err := discovery.Pipelines(root, cfg.Files, cfg.Include)
	if err != nil {
		if errors.Is(err, discovery.ErrNoPipelines) {
			return nil, fmt.Errorf("no pipelines found; specify --file to provide files")
		}
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	runner := batch.New(batch.Options{
		Root:            root,
		DryRun:          cfg.DryRun,
		Backup:          cfg.BackupEnabled(),
		TimestampBackup: cfg.TimestampBackup,
		Provider:        kind,
		Migrators:       batch.Migrators(rw),
		Now:             now,
		Logger:          logger,
	})
	return &session{root: root, cfg: cfg, kind: kind, paths: paths, runner: runner, logger: logger}, nil
}

func buildRewriter(cfg config.Config) (*rewrite.Rewriter, error) {
	target, err := match.Compile(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if len(target) == 0 {
		return nil, errors.New("at least one target pattern is required")
	}

	repl, err := replacement.Load(cfg.Replacement)
	if err != nil {
		return nil, err
	}
	if len(cfg.Markers) > 0 {
		markers, err := match.Compile(cfg.Markers)
		if err != nil {
			return nil, fmt.Errorf("markers: %w", err)
		}
		repl = repl.WithMarkers(markers)
	}
	return rewrite.New(target, repl, cfg.LegacyVariablePrefixes), nil
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func render(cmd *cobra.Command, s *session, results []report.FileResult, summary report.Summary) error {
	switch strings.ToLower(s.cfg.Format) {
	case config.FormatJSON:
		return output.NewJSON(cmd.OutOrStdout()).Render(output.Report{
			Provider: string(s.kind),
			DryRun:   s.cfg.DryRun,
			Files:    results,
			Summary:  summary,
		})
	default:
		return output.NewPretty(cmd.OutOrStdout()).RenderResults(results, summary)
	}
}
