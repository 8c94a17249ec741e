package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bgricker/pipemigrate/internal/report"
)

// PrettyRenderer renders migration results in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

// RenderResults shows one line per file, its matches and a summary.
func (p *PrettyRenderer) RenderResults(results []report.FileResult, summary report.Summary) error {
	var buffer bytes.Buffer
	for _, res := range results {
		fmt.Fprintf(&buffer, "%s %s", statusGlyph(res.Status), res.Path)
		if res.Kind != "" {
			fmt.Fprintf(&buffer, " [%s]", res.Kind)
		}
		fmt.Fprintf(&buffer, " %s\n", describe(res))
		for _, m := range res.Matches {
			fmt.Fprintf(&buffer, "    - %s\n", m.String())
		}
		if res.Backup != "" {
			fmt.Fprintf(&buffer, "    backup: %s\n", res.Backup)
		}
		if res.Error != "" {
			fmt.Fprintf(&buffer, "    error: %s\n", indent(res.Error, "      "))
		}
	}
	if _, err := buffer.WriteTo(p.out); err != nil {
		return err
	}

	_, err := fmt.Fprintf(p.out, "SUMMARY: %d files, %d matched, %d updated, %d skipped, %d failed (%s)\n",
		summary.Total, summary.Matched, summary.Updated, summary.Skipped, summary.Failed, formatDuration(summary.Duration))
	return err
}

func describe(res report.FileResult) string {
	switch res.Status {
	case report.StatusUpdated:
		return fmt.Sprintf("updated (%s, removed %d)", res.Mode, res.Removed)
	case report.StatusMatched:
		return fmt.Sprintf("would update (%s, %d matches)", res.Mode, len(res.Matches))
	case report.StatusUnchanged:
		if res.AlreadyMigrated {
			return "already migrated"
		}
		return "no match"
	case report.StatusFailed:
		return "failed"
	default:
		return res.Status
	}
}

func statusGlyph(status string) string {
	switch status {
	case report.StatusUpdated:
		return "✓"
	case report.StatusMatched:
		return "~"
	case report.StatusFailed:
		return "✗"
	case report.StatusUnchanged:
		return "-"
	default:
		return "?"
	}
}

func indent(s, pad string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Millisecond).String()
}
