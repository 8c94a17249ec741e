package jenkins

import (
	"fmt"

	"github.com/bgricker/pipemigrate/internal/provider"
	"github.com/bgricker/pipemigrate/internal/rewrite"
)

// Migrator rewrites declarative Jenkinsfiles.
type Migrator struct {
	Rewriter Rewriter
}

// NewMigrator derives the Jenkins rewriter from the shared YAML rewriter so
// every dialect uses the same target, markers and legacy prefixes.
func NewMigrator(rw *rewrite.Rewriter) *Migrator {
	c := rw.Classifier()
	return &Migrator{Rewriter: Rewriter{
		Target:         c.Target,
		Markers:        c.Markers,
		Replacement:    rw.Replacement().Jenkins,
		LegacyPrefixes: rw.LegacyPrefixes(),
	}}
}

// Migrate rewrites the stage blocks of a Jenkinsfile.
func (m *Migrator) Migrate(displayPath string, content []byte) (provider.Outcome, error) {
	res, err := m.Rewriter.Rewrite(string(content))
	if err != nil {
		return provider.Outcome{}, fmt.Errorf("jenkinsfile %q: %w", displayPath, err)
	}
	mode := "none"
	if len(res.Matches) > 0 || res.AlreadyMigrated {
		mode = "stages"
	}
	return provider.Outcome{
		Kind:            provider.KindJenkins,
		Mode:            mode,
		Content:         []byte(res.Content),
		Changed:         res.Changed,
		Removed:         res.Removed,
		Inserted:        res.Inserted,
		AlreadyMigrated: res.AlreadyMigrated,
		Matches:         res.Matches,
	}, nil
}
