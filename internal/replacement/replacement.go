package replacement

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bgricker/pipemigrate/internal/match"
	"github.com/bgricker/pipemigrate/internal/pipeline"
)

//go:embed default.yml
var defaultTemplate []byte

const (
	// SyntheticStage names the stage wrapped around a steps-only template.
	SyntheticStage = "BlackDuck"
	// SyntheticJob names the job inside SyntheticStage.
	SyntheticJob = "BlackDuckJob"
)

// Replacement is the content spliced into a pipeline in place of the removed target.
type Replacement struct {
	// Markers identify replacement content already present in a document.
	Markers []match.Pattern
	// Stages is a sequence of Azure stages.
	Stages *yaml.Node
	// Steps is a sequence of steps used by step-level dialects.
	Steps *yaml.Node
	// Variables is a mapping or a sequence of {name, value} entries.
	Variables *yaml.Node
	// Jenkins holds the declarative stage text for Jenkinsfiles.
	Jenkins string
}

// Default returns the built-in Black Duck replacement.
func Default() (Replacement, error) {
	return Parse(defaultTemplate, "default.yml")
}

// Load reads a replacement template from path. An empty path yields Default.
func Load(path string) (Replacement, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Replacement{}, fmt.Errorf("read replacement %q: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a replacement template.
func Parse(data []byte, displayPath string) (Replacement, error) {
	doc, err := pipeline.DecodeBytes(data, displayPath)
	if err != nil {
		return Replacement{}, err
	}
	root, err := pipeline.Root(doc)
	if err != nil {
		return Replacement{}, fmt.Errorf("replacement %q: %w", displayPath, err)
	}

	var out Replacement
	if n := pipeline.Lookup(root, "markers"); n != nil {
		var raw []string
		if err := n.Decode(&raw); err != nil {
			return Replacement{}, fmt.Errorf("replacement %q: markers: %w", displayPath, err)
		}
		out.Markers, err = match.Compile(raw)
		if err != nil {
			return Replacement{}, fmt.Errorf("replacement %q: %w", displayPath, err)
		}
	}

	for _, key := range []string{"stages", "steps"} {
		n := pipeline.Lookup(root, key)
		if n == nil {
			continue
		}
		if n.Kind != yaml.SequenceNode {
			return Replacement{}, fmt.Errorf("%w: replacement %q: %s is %s, want sequence",
				pipeline.ErrMalformedDocument, displayPath, key, pipeline.KindName(n.Kind))
		}
		if key == "stages" {
			out.Stages = n
		} else {
			out.Steps = n
		}
	}
	if out.Stages == nil && out.Steps != nil {
		out.Stages = wrapSteps(out.Steps)
	}

	if n := pipeline.Lookup(root, "variables"); n != nil {
		if n.Kind != yaml.MappingNode && n.Kind != yaml.SequenceNode {
			return Replacement{}, fmt.Errorf("%w: replacement %q: variables is %s",
				pipeline.ErrMalformedDocument, displayPath, pipeline.KindName(n.Kind))
		}
		out.Variables = n
	}
	out.Jenkins = pipeline.ScalarValue(root, "jenkins")

	if out.Stages == nil && out.Steps == nil && out.Jenkins == "" {
		return Replacement{}, fmt.Errorf("%w: replacement %q declares no stages, steps or jenkins block",
			pipeline.ErrMalformedDocument, displayPath)
	}
	return out, nil
}

// WithMarkers returns a copy of r whose markers are replaced when patterns is non-empty.
func (r Replacement) WithMarkers(patterns []match.Pattern) Replacement {
	if len(patterns) > 0 {
		r.Markers = append([]match.Pattern{}, patterns...)
	}
	return r
}

// Entry is a single variable declaration independent of its YAML shape.
type Entry struct {
	Name  string
	Value *yaml.Node
	// Node is the original sequence element, nil for mapping entries.
	Node *yaml.Node
}

// Entries flattens a mapping or {name, value} sequence into entries.
// Sequence elements without a name (groups, templates) are skipped.
func Entries(vars *yaml.Node) []Entry {
	if vars == nil {
		return nil
	}
	var out []Entry
	switch vars.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(vars.Content); i += 2 {
			out = append(out, Entry{Name: vars.Content[i].Value, Value: vars.Content[i+1]})
		}
	case yaml.SequenceNode:
		for _, item := range vars.Content {
			name := pipeline.ScalarValue(item, "name")
			if name == "" {
				continue
			}
			value := pipeline.Lookup(item, "value")
			if value == nil {
				value = pipeline.Scalar("")
			}
			out = append(out, Entry{Name: name, Value: value, Node: item})
		}
	}
	return out
}

func wrapSteps(steps *yaml.Node) *yaml.Node {
	job := pipeline.Mapping(
		pipeline.Scalar("job"), pipeline.Scalar(SyntheticJob),
		pipeline.Scalar("steps"), steps,
	)
	stage := pipeline.Mapping(
		pipeline.Scalar("stage"), pipeline.Scalar(SyntheticStage),
		pipeline.Scalar("jobs"), pipeline.SequenceOf([]*yaml.Node{job}),
	)
	return pipeline.SequenceOf([]*yaml.Node{stage})
}

// AsMapping converts a variables collection to mapping form. Mappings are
// returned as is; nil stays nil.
func AsMapping(vars *yaml.Node) *yaml.Node {
	if vars == nil || vars.Kind == yaml.MappingNode {
		return vars
	}
	entries := Entries(vars)
	if len(entries) == 0 {
		return nil
	}
	out := pipeline.Mapping()
	for _, entry := range entries {
		out.Content = append(out.Content, pipeline.Scalar(entry.Name), entry.Value)
	}
	return out
}
