package gitops

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

func initRepo(t *testing.T, dir string) *Client {
	t.Helper()
	c := &Client{Dir: dir, Binary: "git"}
	ctx := context.Background()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "ci@example.com"},
		{"config", "user.name", "CI"},
		{"config", "commit.gpgsign", "false"},
	} {
		_, err := c.run(ctx, args...)
		require.NoError(t, err)
	}
	return c
}

func TestCommit(t *testing.T) {
	requireGit(t)
	defer goleak.VerifyNone(t)
	dir := t.TempDir()
	c := initRepo(t, dir)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "azure-pipelines.yml"), []byte("stages: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x\n"), 0o644))
	require.NoError(t, c.Commit(ctx, []string{"azure-pipelines.yml"}, "Replace scans"))

	subject, err := c.run(ctx, "log", "-1", "--format=%s")
	require.NoError(t, err)
	require.Equal(t, "Replace scans", subject)

	files, err := c.run(ctx, "show", "--name-only", "--format=", "HEAD")
	require.NoError(t, err)
	require.Equal(t, "azure-pipelines.yml", files)

	err = c.Commit(ctx, []string{"azure-pipelines.yml"}, "again")
	require.True(t, errors.Is(err, ErrNothingToCommit), "got %v", err)
}

func TestCommitValidation(t *testing.T) {
	c := &Client{Dir: t.TempDir()}
	require.ErrorIs(t, c.Commit(context.Background(), nil, "msg"), ErrNothingToCommit)
	require.Error(t, c.Commit(context.Background(), []string{"a"}, "  "))
}

func TestPushRedactsToken(t *testing.T) {
	requireGit(t)
	defer goleak.VerifyNone(t)
	remote := t.TempDir()
	_, err := (&Client{Dir: remote}).run(context.Background(), "init", "-q", "--bare")
	require.NoError(t, err)

	dir := t.TempDir()
	c := initRepo(t, dir)
	core, logs := observer.New(zapcore.DebugLevel)
	c.Logger = zap.New(core)
	c.Token = "s3cr3t-token"
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Jenkinsfile"), []byte("pipeline {}\n"), 0o644))
	require.NoError(t, c.Commit(ctx, []string{"Jenkinsfile"}, "Add pipeline"))
	require.NoError(t, c.Push(ctx, remote, "migrate/blackduck"))

	heads, err := (&Client{Dir: remote}).run(ctx, "branch", "--list", "migrate/blackduck")
	require.NoError(t, err)
	require.Contains(t, heads, "migrate/blackduck")

	for _, entry := range logs.All() {
		for _, arg := range entry.ContextMap()["args"].([]interface{}) {
			require.NotContains(t, arg.(string), "s3cr3t")
		}
	}

	err = c.Push(ctx, filepath.Join(t.TempDir(), "missing"), "main")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "s3cr3t")
	require.NotContains(t, err.Error(), authHeader(c.Token))
}

func TestTokenFromEnv(t *testing.T) {
	env := map[string]string{"GIT_TOKEN": "fallback"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	require.Equal(t, "fallback", TokenFromEnv(lookup))
	env["PIPEMIGRATE_GIT_TOKEN"] = " primary "
	require.Equal(t, "primary", TokenFromEnv(lookup))
	require.Empty(t, TokenFromEnv(func(string) (string, bool) { return "", false }))
}

func TestRedact(t *testing.T) {
	got := redact([]string{"-c", "http.extraHeader=" + authHeader("tok"), "push"})
	require.Equal(t, "-c http.extraHeader=<redacted> push", strings.Join(got, " "))
}

func TestMissing(t *testing.T) {
	c := &Client{Dir: t.TempDir(), Binary: "git-binary-that-does-not-exist"}
	_, err := c.run(context.Background(), "status")
	require.True(t, Missing(err), "got %v", err)
}

func TestScrub(t *testing.T) {
	c := &Client{Token: "s3cr3t-token"}
	out := c.scrub("fatal: header " + authHeader(c.Token) + " creds " + basicCredentials(c.Token) + " raw s3cr3t-token")
	require.Equal(t, "fatal: header Authorization: Basic <redacted> creds <redacted> raw <redacted>", out)
	require.Equal(t, "untouched", (&Client{}).scrub("untouched"))
}

func TestPushErrorHidesCredentials(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for git")
	}
	// A git stand-in that echoes its arguments, header included, and fails.
	script := filepath.Join(t.TempDir(), "git")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" >&2\nexit 1\n"), 0o755))

	c := &Client{Dir: t.TempDir(), Binary: script, Token: "s3cr3t-token"}
	err := c.Push(context.Background(), "origin", "main")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "s3cr3t")
	require.NotContains(t, err.Error(), basicCredentials(c.Token))
	require.Contains(t, err.Error(), "<redacted>")
}
