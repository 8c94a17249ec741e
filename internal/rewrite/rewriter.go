package rewrite

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bgricker/pipemigrate/internal/match"
	"github.com/bgricker/pipemigrate/internal/pipeline"
	"github.com/bgricker/pipemigrate/internal/replacement"
)

// Mode names the container a rewrite acted upon.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeStages Mode = "stages"
	ModeSteps  Mode = "steps"
	ModeJobs   Mode = "jobs"
)

const (
	// LegacyPreStage holds steps that preceded the removed target.
	LegacyPreStage = "LegacyPre"
	// LegacyPostStage holds steps that followed the removed target.
	LegacyPostStage = "LegacyPost"
)

// Result describes the outcome of a rewrite.
type Result struct {
	// Document is a fresh tree; the input document is never modified.
	Document *yaml.Node
	Mode     Mode
	Changed  bool
	// Removed counts removed stages (stage mode) or steps (step modes).
	// In stage mode a target step pruned from a stage that also carries a
	// marker counts as well, since that stage is kept.
	Removed  int
	Inserted bool
	// AlreadyMigrated is set when replacement markers were found in the input.
	AlreadyMigrated bool
	Matches         []pipeline.Location
}

// Rewriter replaces target stages or steps of a pipeline document with a
// replacement fragment.
type Rewriter struct {
	classifier     Classifier
	replacement    replacement.Replacement
	legacyPrefixes []string
}

// New constructs a Rewriter. A nil legacyPrefixes uses DefaultLegacyPrefixes.
func New(target []match.Pattern, repl replacement.Replacement, legacyPrefixes []string) *Rewriter {
	if legacyPrefixes == nil {
		legacyPrefixes = DefaultLegacyPrefixes
	}
	return &Rewriter{
		classifier:     Classifier{Target: target, Markers: repl.Markers},
		replacement:    repl,
		legacyPrefixes: append([]string{}, legacyPrefixes...),
	}
}

// Classifier exposes the target predicate used by the rewriter.
func (r *Rewriter) Classifier() Classifier {
	return r.classifier
}

// Replacement exposes the fragment spliced in by the rewriter.
func (r *Rewriter) Replacement() replacement.Replacement {
	return r.replacement
}

// LegacyPrefixes returns the variable name prefixes scrubbed on migration.
func (r *Rewriter) LegacyPrefixes() []string {
	return append([]string{}, r.legacyPrefixes...)
}

// Rewrite migrates an Azure-style document exposing a root stage list or a
// root step list. Documents with neither, or without a target, come back
// unchanged. Only a non-mapping root or a non-sequence replacement fragment
// is an error.
func (r *Rewriter) Rewrite(doc *yaml.Node) (Result, error) {
	out := pipeline.Clone(doc)
	root, err := pipeline.Root(out)
	if err != nil {
		return Result{}, err
	}
	if stages := r.replacement.Stages; stages != nil && stages.Kind != yaml.SequenceNode {
		return Result{}, fmt.Errorf("%w: replacement stages is %s, want sequence",
			pipeline.ErrMalformedDocument, pipeline.KindName(stages.Kind))
	}

	if stages := pipeline.Sequence(root, "stages"); stages != nil {
		return r.rewriteStages(out, root, stages), nil
	}
	if steps := pipeline.Sequence(root, "steps"); steps != nil {
		return r.rewriteSteps(out, root, steps), nil
	}
	return Result{Document: out, Mode: ModeNone}, nil
}

func (r *Rewriter) rewriteStages(doc, root, stages *yaml.Node) Result {
	res := Result{Document: doc, Mode: ModeStages}
	items := stages.Content
	res.AlreadyMigrated = r.classifier.ContainsMarkers(items)

	if _, ok := FirstMatchIndex(items, r.classifier.Stage); !ok {
		if res.AlreadyMigrated {
			res.Changed = r.normalizeVariables(root)
		}
		return res
	}

	for i, stage := range items {
		if r.classifier.Stage(stage) {
			res.Matches = append(res.Matches, r.stageMatches(stage, i)...)
		}
	}

	// A stage that already runs the replacement loses only its target
	// steps; every other stage with a target goes whole.
	for _, stage := range items {
		if r.classifier.Stage(stage) && r.marked(stage) {
			res.Removed += r.pruneStage(stage)
		}
	}
	kept := RemoveMatches(items, r.removableStage)
	res.Removed += len(items) - len(kept)

	next := kept
	if first, ok := FirstMatchIndex(items, r.removableStage); ok && !res.AlreadyMigrated {
		// Every stage before the first removable one survives, so first is
		// also the insertion point within kept.
		next = make([]*yaml.Node, 0, len(kept)+r.replacementStageCount())
		next = append(next, kept[:first]...)
		next = append(next, r.replacementStages()...)
		next = append(next, kept[first:]...)
		res.Inserted = true
	}
	stages.Content = next

	r.normalizeVariables(root)
	res.Changed = true
	return res
}

func (r *Rewriter) marked(stage *yaml.Node) bool {
	return r.classifier.ContainsMarkers([]*yaml.Node{stage})
}

func (r *Rewriter) removableStage(stage *yaml.Node) bool {
	return r.classifier.Stage(stage) && !r.marked(stage)
}

// pruneStage drops the target steps of every job in stage and returns how
// many went.
func (r *Rewriter) pruneStage(stage *yaml.Node) int {
	removed := 0
	for _, job := range StageJobs(stage) {
		for _, steps := range jobStepLists(job) {
			kept := RemoveMatches(steps.Content, r.classifier.Step)
			removed += len(steps.Content) - len(kept)
			steps.Content = kept
		}
	}
	return removed
}

func (r *Rewriter) rewriteSteps(doc, root, steps *yaml.Node) Result {
	res := Result{Document: doc, Mode: ModeSteps}
	items := steps.Content
	res.AlreadyMigrated = r.classifier.ContainsMarkers(items)

	first, ok := FirstMatchIndex(items, r.classifier.Step)
	if !ok {
		if res.AlreadyMigrated {
			res.Changed = r.normalizeVariables(root)
		}
		return res
	}

	for i, step := range items {
		if r.classifier.Step(step) {
			res.Matches = append(res.Matches, pipeline.Location{Step: pipeline.StepLabel(step, i), Index: i})
		}
	}

	before := RemoveMatches(items[:first], r.classifier.Step)
	after := RemoveMatches(items[first+1:], r.classifier.Step)
	res.Removed = len(items) - len(before) - len(after)

	var next []*yaml.Node
	if len(before) > 0 {
		next = append(next, legacyStage(LegacyPreStage, before))
	}
	if !res.AlreadyMigrated {
		next = append(next, r.replacementStages()...)
		res.Inserted = true
	}
	if len(after) > 0 {
		next = append(next, legacyStage(LegacyPostStage, after))
	}
	replaceKey(root, "steps", "stages", pipeline.SequenceOf(next))

	r.normalizeVariables(root)
	res.Changed = true
	return res
}

func (r *Rewriter) normalizeVariables(root *yaml.Node) bool {
	return NormalizeVariables(root, "variables", r.replacement.Variables, r.legacyPrefixes)
}

func (r *Rewriter) replacementStages() []*yaml.Node {
	if r.replacement.Stages == nil {
		return nil
	}
	return pipeline.CloneAll(r.replacement.Stages.Content)
}

func (r *Rewriter) replacementStageCount() int {
	if r.replacement.Stages == nil {
		return 0
	}
	return len(r.replacement.Stages.Content)
}

func (r *Rewriter) stageMatches(stage *yaml.Node, index int) []pipeline.Location {
	var out []pipeline.Location
	stageName := pipeline.StageName(stage)
	for _, job := range StageJobs(stage) {
		jobName := pipeline.JobName(job)
		for i, step := range JobSteps(job) {
			if r.classifier.Step(step) {
				out = append(out, pipeline.Location{
					Stage: stageName,
					Job:   jobName,
					Step:  pipeline.StepLabel(step, i),
					Index: index,
				})
			}
		}
	}
	return out
}

func legacyStage(name string, steps []*yaml.Node) *yaml.Node {
	job := pipeline.Mapping(
		pipeline.Scalar("job"), pipeline.Scalar(name+"Job"),
		pipeline.Scalar("steps"), pipeline.SequenceOf(steps),
	)
	return pipeline.Mapping(
		pipeline.Scalar("stage"), pipeline.Scalar(name),
		pipeline.Scalar("displayName"), pipeline.Scalar(name),
		pipeline.Scalar("jobs"), pipeline.SequenceOf([]*yaml.Node{job}),
	)
}

// replaceKey swaps the entry oldKey for newKey: value at the same position.
func replaceKey(m *yaml.Node, oldKey, newKey string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == oldKey {
			m.Content[i] = pipeline.Scalar(newKey)
			m.Content[i+1] = value
			return
		}
	}
	pipeline.Set(m, newKey, value)
}
