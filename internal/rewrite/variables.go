package rewrite

import (
	"gopkg.in/yaml.v3"

	"github.com/bgricker/pipemigrate/internal/match"
	"github.com/bgricker/pipemigrate/internal/pipeline"
	"github.com/bgricker/pipemigrate/internal/replacement"
)

// DefaultLegacyPrefixes name the variables dropped during migration.
var DefaultLegacyPrefixes = []string{"COVERITY_", "POLARIS_"}

// NormalizeVariables scrubs legacy entries from the variables collection
// stored under key in root and merges repl into it. Mapping collections use
// union semantics with repl winning on conflict; sequence collections append
// entries whose name is absent. Names declared by repl are never scrubbed.
// It reports whether root changed.
func NormalizeVariables(root *yaml.Node, key string, repl *yaml.Node, legacyPrefixes []string) bool {
	incoming := replacement.Entries(repl)
	declared := make(map[string]struct{}, len(incoming))
	for _, entry := range incoming {
		declared[entry.Name] = struct{}{}
	}
	isLegacy := func(name string) bool {
		if _, ok := declared[name]; ok {
			return false
		}
		return match.HasPrefixFold(name, legacyPrefixes)
	}

	vars := pipeline.Lookup(root, key)
	if vars == nil {
		if len(incoming) == 0 {
			return false
		}
		pipeline.Set(root, key, pipeline.Clone(repl))
		return true
	}

	switch vars.Kind {
	case yaml.MappingNode:
		changed := scrubMapping(vars, isLegacy)
		for _, entry := range incoming {
			if mergeMappingEntry(vars, entry) {
				changed = true
			}
		}
		return changed
	case yaml.SequenceNode:
		changed := scrubSequence(vars, isLegacy)
		for _, entry := range incoming {
			if appendSequenceEntry(vars, entry) {
				changed = true
			}
		}
		return changed
	default:
		return false
	}
}

// ScrubVariables removes legacy entries from the collection under key
// without merging anything. It reports whether root changed.
func ScrubVariables(root *yaml.Node, key string, legacyPrefixes []string) bool {
	vars := pipeline.Lookup(root, key)
	if vars == nil {
		return false
	}
	isLegacy := func(name string) bool { return match.HasPrefixFold(name, legacyPrefixes) }
	switch vars.Kind {
	case yaml.MappingNode:
		return scrubMapping(vars, isLegacy)
	case yaml.SequenceNode:
		return scrubSequence(vars, isLegacy)
	default:
		return false
	}
}

func scrubMapping(vars *yaml.Node, isLegacy func(string) bool) bool {
	var legacy []string
	for i := 0; i+1 < len(vars.Content); i += 2 {
		if name := vars.Content[i].Value; isLegacy(name) {
			legacy = append(legacy, name)
		}
	}
	for _, name := range legacy {
		pipeline.Delete(vars, name)
	}
	return len(legacy) > 0
}

func scrubSequence(vars *yaml.Node, isLegacy func(string) bool) bool {
	kept := RemoveMatches(vars.Content, func(item *yaml.Node) bool {
		name := pipeline.ScalarValue(item, "name")
		return name != "" && isLegacy(name)
	})
	if len(kept) == len(vars.Content) {
		return false
	}
	vars.Content = kept
	return true
}

func mergeMappingEntry(vars *yaml.Node, entry replacement.Entry) bool {
	existing := pipeline.Lookup(vars, entry.Name)
	if existing != nil && pipeline.Equal(existing, entry.Value) {
		return false
	}
	pipeline.Set(vars, entry.Name, pipeline.Clone(entry.Value))
	return true
}

func appendSequenceEntry(vars *yaml.Node, entry replacement.Entry) bool {
	for _, item := range vars.Content {
		if pipeline.ScalarValue(item, "name") == entry.Name {
			return false
		}
	}
	node := entry.Node
	if node == nil {
		node = pipeline.Mapping(
			pipeline.Scalar("name"), pipeline.Scalar(entry.Name),
			pipeline.Scalar("value"), entry.Value,
		)
	}
	vars.Content = append(vars.Content, pipeline.Clone(node))
	return true
}
