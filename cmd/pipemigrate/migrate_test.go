package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bgricker/pipemigrate/internal/pipeline"
)

func migrateIn(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	chdir(t, dir)
	fixedClock(t)

	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"migrate"}, args...))
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func stageNames(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := pipeline.DecodeBytes(data, path)
	require.NoError(t, err)
	root, err := pipeline.Root(doc)
	require.NoError(t, err)
	var names []string
	for _, stage := range pipeline.Sequence(root, "stages").Content {
		names = append(names, pipeline.StageName(stage))
	}
	return names
}

func TestMigrateCommandRewritesInPlace(t *testing.T) {
	root := projectRoot(t)
	tmp := t.TempDir()
	copyDir(t, filepath.Join(root, "testdata", "pipelines"), tmp)

	out, err := migrateIn(t, tmp, "--file", "azure-pipelines.yml", "--file", "clean.yml")
	require.NoError(t, err)
	require.Contains(t, out, "✓ azure-pipelines.yml [azure] updated (stages, removed 1)")
	require.Contains(t, out, "backup: azure-pipelines.yml.bak")
	require.Contains(t, out, "SUMMARY: 2 files, 1 matched, 1 updated, 1 skipped, 0 failed (0s)")

	require.Equal(t, []string{"Build", "BlackDuck", "Deploy"}, stageNames(t, filepath.Join(tmp, "azure-pipelines.yml")))

	migrated, err := os.ReadFile(filepath.Join(tmp, "azure-pipelines.yml"))
	require.NoError(t, err)
	require.NotContains(t, string(migrated), "POLARIS_SERVER_URL")
	require.Contains(t, string(migrated), "BUILD_CONFIGURATION")
	require.Contains(t, string(migrated), "BLACKDUCKSCA_URL")

	backup, err := os.ReadFile(filepath.Join(tmp, "azure-pipelines.yml.bak"))
	require.NoError(t, err)
	require.Equal(t, readGolden(t, filepath.Join(root, "testdata", "pipelines", "azure-pipelines.yml")), string(backup))

	again, err := migrateIn(t, tmp, "--file", "azure-pipelines.yml", "--no-backup")
	require.NoError(t, err)
	require.Contains(t, again, "- azure-pipelines.yml [azure] already migrated")
	second, err := os.ReadFile(filepath.Join(tmp, "azure-pipelines.yml"))
	require.NoError(t, err)
	require.Equal(t, string(migrated), string(second))
}

func TestMigrateCommandDryRun(t *testing.T) {
	root := projectRoot(t)
	tmp := t.TempDir()
	copyDir(t, filepath.Join(root, "testdata", "pipelines"), tmp)

	out, err := migrateIn(t, tmp, "--file", "azure-pipelines.yml", "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "~ azure-pipelines.yml [azure] would update")
	require.NoFileExists(t, filepath.Join(tmp, "azure-pipelines.yml.bak"))
	require.Equal(t, []string{"Build", "Polaris", "Deploy"}, stageNames(t, filepath.Join(tmp, "azure-pipelines.yml")))
}

func TestMigrateCommandBatchPartialFailure(t *testing.T) {
	root := projectRoot(t)
	tmp := t.TempDir()
	copyDir(t, filepath.Join(root, "testdata", "pipelines"), tmp)

	out, err := migrateIn(t, tmp, "--file", "azure-pipelines.yml", "--file", "broken.yml", "--file", "clean.yml", "--no-backup")
	require.Error(t, err)
	require.Contains(t, out, "SUMMARY: 3 files, 1 matched, 1 updated, 1 skipped, 1 failed (0s)")
	require.Equal(t, []string{"Build", "BlackDuck", "Deploy"}, stageNames(t, filepath.Join(tmp, "azure-pipelines.yml")))
	require.NoFileExists(t, filepath.Join(tmp, "azure-pipelines.yml.bak"))
}

func TestMigrateCommandUsesConfig(t *testing.T) {
	root := projectRoot(t)
	tmp := t.TempDir()
	copyDir(t, filepath.Join(root, "testdata", "pipelines"), tmp)

	configYAML := []byte(`files:
  - azure-pipelines.yml
target:
  - /cov-analyze/
timestamp_backup: true
`)
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".pipemigrate.yml"), configYAML, 0o644))

	out, err := migrateIn(t, tmp)
	require.NoError(t, err)
	require.Contains(t, out, "- azure-pipelines.yml [azure] no match")
	require.Contains(t, out, "SUMMARY: 1 files, 0 matched, 0 updated, 1 skipped, 0 failed (0s)")

	out, err = migrateIn(t, tmp, "--target", "polaris")
	require.NoError(t, err)
	require.Contains(t, out, "backup: azure-pipelines.yml.20240309T140506.bak")
}

func TestMigrateCommandCommits(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
	root := projectRoot(t)
	tmp := t.TempDir()
	copyDir(t, filepath.Join(root, "testdata", "pipelines"), tmp)

	git := func(args ...string) string {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = tmp
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
		return strings.TrimSpace(string(out))
	}
	git("init", "-q")
	git("config", "user.email", "ci@example.com")
	git("config", "user.name", "CI")
	git("config", "commit.gpgsign", "false")
	git("add", ".")
	git("commit", "-q", "-m", "initial")

	_, err := migrateIn(t, tmp, "--file", "azure-pipelines.yml", "--commit", "--message", "Switch to Black Duck")
	require.NoError(t, err)

	require.Equal(t, "Switch to Black Duck", git("log", "-1", "--format=%s"))
	require.Equal(t, "azure-pipelines.yml", git("show", "--name-only", "--format=", "HEAD"))
	require.Contains(t, git("status", "--porcelain"), "azure-pipelines.yml.bak")
}

func TestMigrateCommandRootFlag(t *testing.T) {
	root := projectRoot(t)
	tmp := t.TempDir()
	copyDir(t, filepath.Join(root, "testdata", "pipelines"), tmp)

	out, err := migrateIn(t, root, "--root", tmp, "--file", "azure-pipelines.yml")
	require.NoError(t, err)
	require.Contains(t, out, "✓ azure-pipelines.yml [azure] updated (stages, removed 1)")
	require.Equal(t, []string{"Build", "BlackDuck", "Deploy"}, stageNames(t, filepath.Join(tmp, "azure-pipelines.yml")))
	require.FileExists(t, filepath.Join(tmp, "azure-pipelines.yml.bak"))

	// The checked-in fixture stays untouched.
	original, err := os.ReadFile(filepath.Join(root, "testdata", "pipelines", "azure-pipelines.yml"))
	require.NoError(t, err)
	require.Contains(t, string(original), "SynopsysPolaris@1")
}

func TestMigrateCommandCommitWithoutGit(t *testing.T) {
	root := projectRoot(t)
	tmp := t.TempDir()
	copyDir(t, filepath.Join(root, "testdata", "pipelines"), tmp)

	prev := gitBinary
	gitBinary = "git-binary-that-does-not-exist"
	t.Cleanup(func() { gitBinary = prev })

	_, err := migrateIn(t, tmp, "--file", "azure-pipelines.yml", "--commit")
	require.Error(t, err)
	require.Contains(t, err.Error(), "git executable not found")
	require.Equal(t, []string{"Build", "BlackDuck", "Deploy"}, stageNames(t, filepath.Join(tmp, "azure-pipelines.yml")))
}
