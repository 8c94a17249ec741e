package pipeline

import (
	"gopkg.in/yaml.v3"
)

// Lookup returns the value stored under key in mapping m, or nil.
func Lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolve(m.Content[i+1])
		}
	}
	return nil
}

// Sequence returns the sequence stored under key, or nil when the key is
// missing or holds something else.
func Sequence(m *yaml.Node, key string) *yaml.Node {
	n := Lookup(m, key)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	return n
}

// ScalarValue returns the scalar stored under key, or "".
func ScalarValue(m *yaml.Node, key string) string {
	n := Lookup(m, key)
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

// Set stores value under key, replacing an existing entry in place or
// appending a new one.
func Set(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, Scalar(key), value)
}

// Delete removes key from mapping m and reports whether it was present.
func Delete(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i:i], m.Content[i+2:]...)
			return true
		}
	}
	return false
}

// Scalar builds a plain string scalar.
func Scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// Mapping builds a mapping from alternating keys and values.
func Mapping(pairs ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: pairs}
}

// SequenceOf builds a sequence holding items.
func SequenceOf(items []*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

// Clone deep-copies n. Aliases inside the copy point at copied anchors.
func Clone(n *yaml.Node) *yaml.Node {
	return cloneNode(n, make(map[*yaml.Node]*yaml.Node))
}

func cloneNode(n *yaml.Node, seen map[*yaml.Node]*yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if c, ok := seen[n]; ok {
		return c
	}
	c := *n
	seen[n] = &c
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child, seen)
		}
	}
	if n.Alias != nil {
		c.Alias = cloneNode(n.Alias, seen)
	}
	return &c
}

// CloneAll deep-copies every node in items.
func CloneAll(items []*yaml.Node) []*yaml.Node {
	out := make([]*yaml.Node, len(items))
	for i, n := range items {
		out[i] = Clone(n)
	}
	return out
}

// Strings returns every string scalar reachable under n in document order.
// Mapping keys are skipped.
func Strings(n *yaml.Node) []string {
	var out []string
	var walk func(*yaml.Node)
	walk = func(cur *yaml.Node) {
		cur = resolve(cur)
		if cur == nil {
			return
		}
		switch cur.Kind {
		case yaml.ScalarNode:
			if cur.Value != "" {
				out = append(out, cur.Value)
			}
		case yaml.MappingNode:
			for i := 1; i < len(cur.Content); i += 2 {
				walk(cur.Content[i])
			}
		default:
			for _, child := range cur.Content {
				walk(child)
			}
		}
	}
	walk(n)
	return out
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
