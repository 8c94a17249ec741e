package azure

import (
	"github.com/bgricker/pipemigrate/internal/pipeline"
	"github.com/bgricker/pipemigrate/internal/provider"
	"github.com/bgricker/pipemigrate/internal/rewrite"
)

// Migrator rewrites Azure DevOps pipelines.
type Migrator struct {
	Rewriter *rewrite.Rewriter
}

// NewMigrator constructs a Migrator backed by rw.
func NewMigrator(rw *rewrite.Rewriter) *Migrator {
	return &Migrator{Rewriter: rw}
}

// Migrate decodes content, rewrites its stage or step list and re-encodes it
// when something changed.
func (m *Migrator) Migrate(displayPath string, content []byte) (provider.Outcome, error) {
	doc, err := pipeline.DecodeBytes(content, displayPath)
	if err != nil {
		return provider.Outcome{}, err
	}
	res, err := m.Rewriter.Rewrite(doc)
	if err != nil {
		return provider.Outcome{}, err
	}
	return provider.FromResult(provider.KindAzure, res, content)
}
