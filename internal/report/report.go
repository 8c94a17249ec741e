package report

import (
	"time"

	"github.com/bgricker/pipemigrate/internal/pipeline"
)

// File statuses.
const (
	StatusUpdated   = "updated"
	StatusMatched   = "matched"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
)

// FileResult captures the outcome of migrating a single pipeline file.
type FileResult struct {
	Path            string              `json:"path"`
	Kind            string              `json:"kind"`
	Status          string              `json:"status"`
	Mode            string              `json:"mode,omitempty"`
	Removed         int                 `json:"removed"`
	Inserted        bool                `json:"inserted"`
	AlreadyMigrated bool                `json:"already_migrated"`
	Matches         []pipeline.Location `json:"matches,omitempty"`
	Backup          string              `json:"backup,omitempty"`
	Error           string              `json:"error,omitempty"`
	Structural      bool                `json:"-"`
	DryRun          bool                `json:"dry_run"`
	Duration        time.Duration       `json:"-"`
	DurationMS      int64               `json:"duration_ms"`
}

// Summary aggregates batch results.
type Summary struct {
	Total      int           `json:"total"`
	Matched    int           `json:"matched"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	ExitCode   int           `json:"exit_code"`
}

// Add folds res into the summary. Matched counts every file with at least
// one target, whether or not it was written.
func (s *Summary) Add(res FileResult) {
	s.Total++
	s.Duration += res.Duration
	s.DurationMS = s.Duration.Milliseconds()
	if len(res.Matches) > 0 {
		s.Matched++
	}
	switch res.Status {
	case StatusUpdated:
		s.Updated++
	case StatusFailed:
		s.Failed++
		if res.Structural {
			s.ExitCode = 1
		}
	case StatusUnchanged, StatusMatched:
		s.Skipped++
	}
}
