package rewrite

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bgricker/pipemigrate/internal/pipeline"
	"github.com/bgricker/pipemigrate/internal/replacement"
)

// RewriteWorkflow migrates a GitHub Actions workflow. Target steps are
// removed from every job and the replacement steps are inserted at the
// position of the first removed step of that job, unless the job already
// runs the replacement. The root env mapping takes the role of the
// variables collection.
func (r *Rewriter) RewriteWorkflow(doc *yaml.Node) (Result, error) {
	out := pipeline.Clone(doc)
	root, err := pipeline.Root(out)
	if err != nil {
		return Result{}, err
	}
	if steps := r.replacement.Steps; steps != nil && steps.Kind != yaml.SequenceNode {
		return Result{}, fmt.Errorf("%w: replacement steps is %s, want sequence",
			pipeline.ErrMalformedDocument, pipeline.KindName(steps.Kind))
	}

	jobs := pipeline.Lookup(root, "jobs")
	if jobs == nil || jobs.Kind != yaml.MappingNode {
		return Result{Document: out, Mode: ModeNone}, nil
	}

	res := Result{Document: out, Mode: ModeJobs}
	for i := 0; i+1 < len(jobs.Content); i += 2 {
		jobID := jobs.Content[i].Value
		job := jobs.Content[i+1]
		steps := pipeline.Sequence(job, "steps")
		if steps == nil {
			continue
		}
		items := steps.Content
		present := r.classifier.ContainsMarkers(items)
		if present {
			res.AlreadyMigrated = true
		}

		first, ok := FirstMatchIndex(items, r.classifier.Step)
		if !ok {
			continue
		}
		jobName := pipeline.ScalarValue(job, "name")
		if jobName == "" {
			jobName = jobID
		}
		for idx, step := range items {
			if r.classifier.Step(step) {
				res.Matches = append(res.Matches, pipeline.Location{Job: jobName, Step: pipeline.StepLabel(step, idx), Index: idx})
			}
		}

		kept := RemoveMatches(items, r.classifier.Step)
		res.Removed += len(items) - len(kept)

		next := make([]*yaml.Node, 0, len(kept)+1)
		next = append(next, kept[:first]...)
		if !present && r.replacement.Steps != nil {
			next = append(next, pipeline.CloneAll(r.replacement.Steps.Content)...)
			res.Inserted = true
		}
		next = append(next, kept[first:]...)
		steps.Content = next
		res.Changed = true
	}

	if res.Changed || res.AlreadyMigrated {
		if r.normalizeEnv(root, jobs) {
			res.Changed = true
		}
	}
	return res, nil
}

func (r *Rewriter) normalizeEnv(root, jobs *yaml.Node) bool {
	changed := NormalizeVariables(root, "env", replacement.AsMapping(r.replacement.Variables), r.legacyPrefixes)
	for i := 1; i < len(jobs.Content); i += 2 {
		job := jobs.Content[i]
		if job.Kind != yaml.MappingNode {
			continue
		}
		if ScrubVariables(job, "env", r.legacyPrefixes) {
			changed = true
		}
	}
	return changed
}
