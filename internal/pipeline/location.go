package pipeline

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location identifies a matched step inside a pipeline document.
type Location struct {
	Stage string `json:"stage,omitempty"`
	Job   string `json:"job,omitempty"`
	Step  string `json:"step"`
	Index int    `json:"index"`
}

func (l Location) String() string {
	parts := make([]string, 0, 3)
	if l.Stage != "" {
		parts = append(parts, "stage "+l.Stage)
	}
	if l.Job != "" {
		parts = append(parts, "job "+l.Job)
	}
	parts = append(parts, fmt.Sprintf("step %s", l.Step))
	return strings.Join(parts, " / ")
}

// StageName returns the identifier of an Azure stage mapping.
func StageName(stage *yaml.Node) string {
	return firstScalar(stage, "stage", "name", "displayName")
}

// JobName returns the identifier of a job mapping.
func JobName(job *yaml.Node) string {
	return firstScalar(job, "job", "deployment", "name", "displayName")
}

// StepLabel returns a short human readable label for a step mapping.
func StepLabel(step *yaml.Node, index int) string {
	label := firstScalar(step, "displayName", "name", "task", "uses", "template", "script", "bash", "powershell", "pwsh", "run")
	if label == "" {
		return fmt.Sprintf("step %d", index+1)
	}
	if i := strings.IndexByte(label, '\n'); i >= 0 {
		label = strings.TrimSpace(label[:i]) + " ..."
	}
	return label
}

func firstScalar(m *yaml.Node, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(ScalarValue(m, key)); v != "" {
			return v
		}
	}
	return ""
}

// Equal reports whether a and b hold the same data, ignoring positions,
// styles and comments.
func Equal(a, b *yaml.Node) bool {
	a, b = resolve(a), resolve(b)
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Value != b.Value || len(a.Content) != len(b.Content) {
		return false
	}
	for i := range a.Content {
		if !Equal(a.Content[i], b.Content[i]) {
			return false
		}
	}
	return true
}
