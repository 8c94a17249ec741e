package github

import (
	"strings"
	"testing"

	"github.com/bgricker/pipemigrate/internal/match"
	"github.com/bgricker/pipemigrate/internal/replacement"
	"github.com/bgricker/pipemigrate/internal/rewrite"
)

func TestMigrateWorkflow(t *testing.T) {
	repl, err := replacement.Default()
	if err != nil {
		t.Fatalf("default replacement: %v", err)
	}
	m := NewMigrator(rewrite.New(match.MustCompile("polaris"), repl, nil))

	src := []byte(`name: CI
on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - name: Polaris
        uses: synopsys-sig/polaris-action@v1
`)
	out, err := m.Migrate(".github/workflows/ci.yml", src)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !out.Changed || out.Removed != 1 || !out.Inserted || out.Mode != "jobs" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	text := string(out.Content)
	if !strings.Contains(text, "blackduck-inc/black-duck-security-scan@v2") || strings.Contains(text, "polaris-action") {
		t.Fatalf("unexpected output:\n%s", text)
	}

	again, err := m.Migrate(".github/workflows/ci.yml", out.Content)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if again.Changed || !again.AlreadyMigrated {
		t.Fatalf("expected migrated workflow to be left alone: %+v", again)
	}
}

func TestMigrateWorkflowWithoutJobs(t *testing.T) {
	repl, err := replacement.Default()
	if err != nil {
		t.Fatalf("default replacement: %v", err)
	}
	m := NewMigrator(rewrite.New(match.MustCompile("polaris"), repl, nil))
	out, err := m.Migrate("wf.yml", []byte("name: empty\n"))
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if out.Changed || out.Mode != "none" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}
