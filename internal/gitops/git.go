package gitops

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ErrNothingToCommit is returned by Commit when none of the paths changed.
var ErrNothingToCommit = errors.New("nothing to commit")

// TokenEnvVars are consulted in order for a push credential.
var TokenEnvVars = []string{"PIPEMIGRATE_GIT_TOKEN", "GIT_TOKEN"}

const redacted = "<redacted>"

// Client runs git in a working tree.
type Client struct {
	Dir    string
	Binary string
	// Token authenticates pushes over HTTPS. It is only ever placed on the
	// push command line and never logged.
	Token  string
	Logger *zap.Logger
}

// NewClient returns a client for dir that picks its token up from the
// environment.
func NewClient(dir string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{Dir: dir, Binary: "git", Token: TokenFromEnv(os.LookupEnv), Logger: logger}
}

// TokenFromEnv returns the first non-empty token variable.
func TokenFromEnv(lookup func(string) (string, bool)) string {
	for _, name := range TokenEnvVars {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Commit stages paths and records them in a single commit.
func (c *Client) Commit(ctx context.Context, paths []string, message string) error {
	if len(paths) == 0 {
		return ErrNothingToCommit
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("commit message is empty")
	}
	if _, err := c.run(ctx, append([]string{"add", "--"}, paths...)...); err != nil {
		return err
	}
	if _, err := c.run(ctx, append([]string{"diff", "--cached", "--quiet", "--"}, paths...)...); err == nil {
		return ErrNothingToCommit
	}
	_, err := c.run(ctx, append([]string{"commit", "-m", message, "--"}, paths...)...)
	return err
}

// Push publishes HEAD to branch on remote. An empty branch pushes to the
// upstream of the current branch.
func (c *Client) Push(ctx context.Context, remote, branch string) error {
	if remote == "" {
		remote = "origin"
	}
	var args []string
	if c.Token != "" {
		args = append(args, "-c", "http.extraHeader="+authHeader(c.Token))
	}
	args = append(args, "push", remote)
	if branch != "" {
		args = append(args, "HEAD:refs/heads/"+branch)
	}
	_, err := c.run(ctx, args...)
	return err
}

func authHeader(token string) string {
	return "Authorization: Basic " + basicCredentials(token)
}

func basicCredentials(token string) string {
	return base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
}

// scrub hides the token from git output, raw or inside the auth header.
func (c *Client) scrub(out string) string {
	if c.Token == "" {
		return out
	}
	return strings.NewReplacer(
		authHeader(c.Token), "Authorization: Basic "+redacted,
		basicCredentials(c.Token), redacted,
		c.Token, redacted,
	).Replace(out)
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	binary := c.Binary
	if binary == "" {
		binary = "git"
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = c.Dir
	cmd.Stdin = nil
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	shown := redact(args)
	c.logger().Debug("running git", zap.Strings("args", shown))
	if err := cmd.Run(); err != nil {
		out := c.scrub(strings.TrimSpace(buf.String()))
		return "", fmt.Errorf("git %s: %w", strings.Join(shown, " "), errors.Join(err, outputError(out)))
	}
	return strings.TrimSpace(buf.String()), nil
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func outputError(out string) error {
	if out == "" {
		return nil
	}
	return errors.New(out)
}

func redact(args []string) []string {
	shown := make([]string, len(args))
	for i, a := range args {
		if strings.HasPrefix(a, "http.extraHeader=") {
			a = "http.extraHeader=" + redacted
		}
		shown[i] = a
	}
	return shown
}

// Missing reports whether the git executable could not be found.
func Missing(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
