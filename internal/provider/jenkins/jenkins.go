package jenkins

import (
	"regexp"
	"strings"

	"github.com/bgricker/pipemigrate/internal/match"
	"github.com/bgricker/pipemigrate/internal/pipeline"
)

// Result describes the outcome of rewriting a Jenkinsfile.
type Result struct {
	Content         string
	Changed         bool
	Removed         int
	Inserted        bool
	AlreadyMigrated bool
	Matches         []pipeline.Location
}

// Rewriter replaces target stage blocks of a declarative Jenkinsfile with a
// replacement stage.
type Rewriter struct {
	Target         []match.Pattern
	Markers        []match.Pattern
	Replacement    string
	LegacyPrefixes []string
}

// Rewrite removes every innermost stage block whose text matches the target
// and inserts the replacement where the first one was. Nothing is inserted
// when a stage already carries a replacement marker.
func (r Rewriter) Rewrite(src string) (Result, error) {
	blocks, err := scanStages(src)
	if err != nil {
		return Result{}, err
	}

	res := Result{Content: src}
	hits := make([]bool, len(blocks))
	for i, b := range blocks {
		if match.Any(r.Markers, b.body) {
			res.AlreadyMigrated = true
			continue
		}
		hits[i] = match.Any(r.Target, b.body)
	}
	// Only the innermost matching stage goes; a parallel group stays when
	// one of its branches is the target.
	innerHit := make([]bool, len(blocks))
	for i, b := range blocks {
		if !hits[i] {
			continue
		}
		for p := b.parent; p >= 0; p = blocks[p].parent {
			innerHit[p] = true
		}
	}

	var removed []block
	for i, b := range blocks {
		if hits[i] && !innerHit[i] {
			removed = append(removed, b)
			res.Matches = append(res.Matches, pipeline.Location{Stage: b.name, Step: r.evidenceLine(b.body), Index: i})
		}
	}

	out := src
	if len(removed) > 0 {
		var sb strings.Builder
		cursor := 0
		for i, b := range removed {
			sb.WriteString(src[cursor:b.start])
			if i == 0 && !res.AlreadyMigrated && strings.TrimSpace(r.Replacement) != "" {
				sb.WriteString(reindent(r.Replacement, b.indent))
				res.Inserted = true
			}
			cursor = b.end
		}
		sb.WriteString(src[cursor:])
		out = sb.String()
		res.Removed = len(removed)
	}

	if len(removed) > 0 || res.AlreadyMigrated {
		out, err = scrubEnvironment(out, r.LegacyPrefixes)
		if err != nil {
			return Result{}, err
		}
	}
	res.Content = out
	res.Changed = out != src
	return res, nil
}

func (r Rewriter) evidenceLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if match.Any(r.Target, line) {
			return line
		}
	}
	return strings.TrimSpace(body)
}

func reindent(text, indent string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n") + "\n"
}

var environmentHeader = regexp.MustCompile(`\benvironment\s*\{`)

// scrubEnvironment drops `NAME = value` statements whose name carries a
// legacy prefix from the environment blocks of src. Statements end at a
// newline or a semicolon outside strings and comments.
func scrubEnvironment(src string, prefixes []string) (string, error) {
	quoted := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p != "" {
			quoted = append(quoted, regexp.QuoteMeta(p))
		}
	}
	if len(quoted) == 0 {
		return src, nil
	}
	assign := regexp.MustCompile(`(?i)^\s*(?:` + strings.Join(quoted, "|") + `)\w*\s*=(?:[^=]|$)`)

	mask, err := codeMask(src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	cursor := 0
	for _, loc := range environmentHeader.FindAllStringIndex(src, -1) {
		open := loc[1] - 1
		if loc[0] < cursor || !mask[loc[0]] || !mask[open] {
			continue
		}
		closeAt, err := matchBrace(src, mask, open)
		if err != nil {
			return "", err
		}
		sb.WriteString(src[cursor : open+1])
		sb.WriteString(dropStatements(src[open+1:closeAt], mask[open+1:closeAt], assign))
		cursor = closeAt
	}
	sb.WriteString(src[cursor:])
	return sb.String(), nil
}

// dropStatements removes the statements of body matching assign together
// with their terminator.
func dropStatements(body string, mask []bool, assign *regexp.Regexp) string {
	var sb strings.Builder
	start := 0
	for i := 0; i <= len(body); i++ {
		if i < len(body) && (!mask[i] || (body[i] != '\n' && body[i] != ';')) {
			continue
		}
		end := i
		if i < len(body) {
			end = i + 1
		}
		if !assign.MatchString(body[start:i]) {
			sb.WriteString(body[start:end])
		}
		start = end
	}
	return sb.String()
}
