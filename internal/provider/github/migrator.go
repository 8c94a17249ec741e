package github

import (
	"github.com/bgricker/pipemigrate/internal/pipeline"
	"github.com/bgricker/pipemigrate/internal/provider"
	"github.com/bgricker/pipemigrate/internal/rewrite"
)

// Migrator rewrites GitHub Actions workflows.
type Migrator struct {
	Rewriter *rewrite.Rewriter
}

// NewMigrator constructs a Migrator backed by rw.
func NewMigrator(rw *rewrite.Rewriter) *Migrator {
	return &Migrator{Rewriter: rw}
}

// Migrate rewrites the steps of every job in the workflow.
func (m *Migrator) Migrate(displayPath string, content []byte) (provider.Outcome, error) {
	doc, err := pipeline.DecodeBytes(content, displayPath)
	if err != nil {
		return provider.Outcome{}, err
	}
	res, err := m.Rewriter.RewriteWorkflow(doc)
	if err != nil {
		return provider.Outcome{}, err
	}
	return provider.FromResult(provider.KindGitHub, res, content)
}
