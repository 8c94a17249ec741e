package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ErrMalformedDocument indicates a pipeline document or replacement fragment
// whose structure cannot be rewritten (for example a root that is not a mapping).
var ErrMalformedDocument = errors.New("malformed pipeline document")

// Decode parses a single YAML pipeline document. The returned node is the
// DocumentNode wrapping the root.
func Decode(r io.Reader, displayPath string) (*yaml.Node, error) {
	decoder := yaml.NewDecoder(r)

	var doc yaml.Node
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %q is empty", ErrMalformedDocument, displayPath)
		}
		return nil, fmt.Errorf("%w: parse %q: %w", ErrMalformedDocument, displayPath, err)
	}
	return &doc, nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte, displayPath string) (*yaml.Node, error) {
	return Decode(bytes.NewReader(data), displayPath)
}

// Encode writes doc as YAML using two-space indentation.
func Encode(w io.Writer, doc *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode pipeline: %w", err)
	}
	return enc.Close()
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Root returns the root mapping of doc. doc may be a DocumentNode or the
// mapping itself.
func Root(doc *yaml.Node) (*yaml.Node, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is empty", ErrMalformedDocument)
	}
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, fmt.Errorf("%w: document is empty", ErrMalformedDocument)
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: root is %s, want mapping", ErrMalformedDocument, KindName(root.Kind))
	}
	return root, nil
}

// KindName names a yaml node kind for error messages.
func KindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
