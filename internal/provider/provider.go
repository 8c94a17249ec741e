package provider

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bgricker/pipemigrate/internal/pipeline"
	"github.com/bgricker/pipemigrate/internal/rewrite"
)

// Kind names a pipeline dialect.
type Kind string

const (
	// KindAuto selects the dialect from the file path.
	KindAuto Kind = "auto"
	// KindAzure handles Azure DevOps YAML pipelines.
	KindAzure Kind = "azure"
	// KindGitHub handles GitHub Actions workflows.
	KindGitHub Kind = "github"
	// KindJenkins handles declarative Jenkinsfiles.
	KindJenkins Kind = "jenkins"
)

// ParseKind validates a dialect name. An empty string means KindAuto.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindAuto:
		return KindAuto, nil
	case KindAzure:
		return KindAzure, nil
	case KindGitHub:
		return KindGitHub, nil
	case KindJenkins:
		return KindJenkins, nil
	default:
		return "", fmt.Errorf("unsupported provider %q", s)
	}
}

// Detect infers the dialect of a pipeline file from its path.
func Detect(path string) Kind {
	slashed := filepath.ToSlash(path)
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasPrefix(base, "jenkinsfile"),
		strings.HasSuffix(base, ".jenkinsfile"),
		strings.HasSuffix(base, ".groovy"):
		return KindJenkins
	case strings.Contains(slashed, ".github/workflows/"):
		return KindGitHub
	default:
		return KindAzure
	}
}

// Outcome is the result of migrating one pipeline file.
type Outcome struct {
	Kind            Kind                `json:"kind"`
	Mode            string              `json:"mode"`
	Content         []byte              `json:"-"`
	Changed         bool                `json:"changed"`
	Removed         int                 `json:"removed"`
	Inserted        bool                `json:"inserted"`
	AlreadyMigrated bool                `json:"already_migrated"`
	Matches         []pipeline.Location `json:"matches,omitempty"`
}

// Migrator rewrites the content of a single pipeline file. Implementations
// never perform I/O; content is returned unchanged when Changed is false.
type Migrator interface {
	Migrate(displayPath string, content []byte) (Outcome, error)
}

// FromResult converts a rewrite result into an Outcome, encoding the
// document only when it changed.
func FromResult(kind Kind, res rewrite.Result, original []byte) (Outcome, error) {
	out := Outcome{
		Kind:            kind,
		Mode:            string(res.Mode),
		Content:         original,
		Changed:         res.Changed,
		Removed:         res.Removed,
		Inserted:        res.Inserted,
		AlreadyMigrated: res.AlreadyMigrated,
		Matches:         res.Matches,
	}
	if !res.Changed {
		return out, nil
	}
	encoded, err := pipeline.EncodeBytes(res.Document)
	if err != nil {
		return Outcome{}, err
	}
	out.Content = encoded
	return out, nil
}
