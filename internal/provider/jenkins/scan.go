package jenkins

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bgricker/pipemigrate/internal/pipeline"
)

var stageHeader = regexp.MustCompile(`\bstage\s*\(\s*(?:'([^'\n]*)'|"([^"\n]*)")\s*\)\s*\{`)

// block is a `stage('name') { ... }` region of a Jenkinsfile.
type block struct {
	name string
	// start is the offset of the first byte of the line holding the header
	// when only whitespace precedes it, otherwise the header offset.
	start int
	// end is the offset just past the closing brace and, when nothing but
	// whitespace follows it on that line, past the newline.
	end    int
	body   string
	indent string
	parent int
}

// codeMask marks the bytes of src that are code, as opposed to string
// literals and comments.
func codeMask(src string) ([]bool, error) {
	mask := make([]bool, len(src))
	i := 0
	for i < len(src) {
		rest := src[i:]
		switch {
		case strings.HasPrefix(rest, "//"):
			j := strings.IndexByte(rest, '\n')
			if j < 0 {
				return mask, nil
			}
			i += j
		case strings.HasPrefix(rest, "/*"):
			j := strings.Index(rest[2:], "*/")
			if j < 0 {
				return nil, fmt.Errorf("%w: unterminated block comment", pipeline.ErrMalformedDocument)
			}
			i += j + 4
		case strings.HasPrefix(rest, `'''`), strings.HasPrefix(rest, `"""`):
			quote := rest[:3]
			j := strings.Index(rest[3:], quote)
			if j < 0 {
				return nil, fmt.Errorf("%w: unterminated %s string", pipeline.ErrMalformedDocument, quote)
			}
			i += j + 6
		case rest[0] == '\'' || rest[0] == '"':
			j := 1
			for ; j < len(rest); j++ {
				if rest[j] == '\\' {
					j++
					continue
				}
				if rest[j] == rest[0] || rest[j] == '\n' {
					break
				}
			}
			i += j + 1
		default:
			mask[i] = true
			i++
		}
	}
	return mask, nil
}

// scanStages returns every stage block of src in source order. parent is the
// index of the innermost enclosing stage block, or -1.
func scanStages(src string) ([]block, error) {
	mask, err := codeMask(src)
	if err != nil {
		return nil, err
	}
	if err := checkBalanced(src, mask); err != nil {
		return nil, err
	}

	var blocks []block
	for _, loc := range stageHeader.FindAllStringSubmatchIndex(src, -1) {
		headerStart, headerEnd := loc[0], loc[1]
		open := headerEnd - 1
		if !mask[headerStart] || !mask[open] {
			continue
		}
		name := ""
		if loc[2] >= 0 {
			name = src[loc[2]:loc[3]]
		} else if loc[4] >= 0 {
			name = src[loc[4]:loc[5]]
		}
		closeAt, err := matchBrace(src, mask, open)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", name, err)
		}

		b := block{name: name, start: headerStart, end: closeAt + 1, body: src[open+1 : closeAt], parent: -1}
		lineStart := strings.LastIndexByte(src[:headerStart], '\n') + 1
		if strings.TrimSpace(src[lineStart:headerStart]) == "" {
			b.start = lineStart
			b.indent = src[lineStart:headerStart]
		}
		if nl := strings.IndexByte(src[b.end:], '\n'); nl >= 0 && strings.TrimSpace(src[b.end:b.end+nl]) == "" {
			b.end += nl + 1
		} else if nl < 0 && strings.TrimSpace(src[b.end:]) == "" {
			b.end = len(src)
		}

		for i := len(blocks) - 1; i >= 0; i-- {
			if blocks[i].start <= headerStart && headerStart < blocks[i].end {
				b.parent = i
				break
			}
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func matchBrace(src string, mask []bool, open int) (int, error) {
	depth := 0
	for i := open; i < len(src); i++ {
		if !mask[i] {
			continue
		}
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: unbalanced braces", pipeline.ErrMalformedDocument)
}

func checkBalanced(src string, mask []bool) error {
	depth := 0
	for i := 0; i < len(src); i++ {
		if !mask[i] {
			continue
		}
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth < 0 {
			return fmt.Errorf("%w: unexpected '}' at offset %d", pipeline.ErrMalformedDocument, i)
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d unclosed '{'", pipeline.ErrMalformedDocument, depth)
	}
	return nil
}
