package rewrite

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bgricker/pipemigrate/internal/match"
	"github.com/bgricker/pipemigrate/internal/pipeline"
)

// stepFields are the scalar fields of a step that count as match evidence.
var stepFields = []string{
	"task", "displayName", "name",
	"script", "bash", "powershell", "pwsh",
	"uses", "run", "template",
}

// stepInputFields hold nested parameters; every string beneath them counts.
var stepInputFields = []string{"inputs", "with"}

// Classifier decides whether pipeline nodes are migration targets.
type Classifier struct {
	Target  []match.Pattern
	Markers []match.Pattern
}

// Evidence returns the case-folded evidence blob for a single step.
func Evidence(step *yaml.Node) string {
	if step == nil || step.Kind != yaml.MappingNode {
		return ""
	}
	var parts []string
	for _, field := range stepFields {
		if v := pipeline.ScalarValue(step, field); v != "" {
			parts = append(parts, v)
		}
	}
	for _, field := range stepInputFields {
		parts = append(parts, pipeline.Strings(pipeline.Lookup(step, field))...)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// Step reports whether step is a target: its evidence matches the target
// patterns and does not match the replacement markers.
func (c Classifier) Step(step *yaml.Node) bool {
	blob := Evidence(step)
	if blob == "" || !match.Any(c.Target, blob) {
		return false
	}
	return !match.Any(c.Markers, blob)
}

// Marked reports whether step carries a replacement marker.
func (c Classifier) Marked(step *yaml.Node) bool {
	return match.Any(c.Markers, Evidence(step))
}

// Job reports whether any step of job is a target.
func (c Classifier) Job(job *yaml.Node) bool {
	for _, step := range JobSteps(job) {
		if c.Step(step) {
			return true
		}
	}
	return false
}

// Stage reports whether any step under any job of stage is a target.
func (c Classifier) Stage(stage *yaml.Node) bool {
	for _, job := range StageJobs(stage) {
		if c.Job(job) {
			return true
		}
	}
	return false
}

// Classify dispatches on the node's shape: a mapping with jobs is a stage,
// a mapping with steps is a job, anything else is a step.
func (c Classifier) Classify(node *yaml.Node) bool {
	switch {
	case pipeline.Sequence(node, "jobs") != nil:
		return c.Stage(node)
	case pipeline.Sequence(node, "steps") != nil:
		return c.Job(node)
	default:
		return c.Step(node)
	}
}

// ContainsMarkers reports whether any step reachable from nodes carries a
// replacement marker. nodes may be stages, jobs or steps.
func (c Classifier) ContainsMarkers(nodes []*yaml.Node) bool {
	if len(c.Markers) == 0 {
		return false
	}
	for _, node := range nodes {
		switch {
		case pipeline.Sequence(node, "jobs") != nil:
			for _, job := range StageJobs(node) {
				if c.ContainsMarkers(JobSteps(job)) {
					return true
				}
			}
		case pipeline.Sequence(node, "steps") != nil:
			if c.ContainsMarkers(JobSteps(node)) {
				return true
			}
		default:
			if c.Marked(node) {
				return true
			}
		}
	}
	return false
}

// StageJobs returns the jobs of an Azure stage.
func StageJobs(stage *yaml.Node) []*yaml.Node {
	if jobs := pipeline.Sequence(stage, "jobs"); jobs != nil {
		return jobs.Content
	}
	return nil
}

// JobSteps returns the steps of a job, including the lifecycle hooks of a
// deployment job strategy (strategy.<name>.<hook>.steps).
func JobSteps(job *yaml.Node) []*yaml.Node {
	var out []*yaml.Node
	for _, steps := range jobStepLists(job) {
		out = append(out, steps.Content...)
	}
	return out
}

// jobStepLists returns the step sequence nodes of a job in document order.
func jobStepLists(job *yaml.Node) []*yaml.Node {
	var out []*yaml.Node
	if steps := pipeline.Sequence(job, "steps"); steps != nil {
		out = append(out, steps)
	}
	strategy := pipeline.Lookup(job, "strategy")
	if strategy == nil || strategy.Kind != yaml.MappingNode {
		return out
	}
	for i := 1; i < len(strategy.Content); i += 2 {
		flavour := strategy.Content[i]
		if flavour.Kind != yaml.MappingNode {
			continue
		}
		for j := 1; j < len(flavour.Content); j += 2 {
			if steps := pipeline.Sequence(flavour.Content[j], "steps"); steps != nil {
				out = append(out, steps)
			}
		}
	}
	return out
}

// FirstMatchIndex returns the position of the first element of items for
// which pred holds.
func FirstMatchIndex(items []*yaml.Node, pred func(*yaml.Node) bool) (int, bool) {
	for i, item := range items {
		if pred(item) {
			return i, true
		}
	}
	return -1, false
}

// RemoveMatches returns a new slice holding the elements of items for which
// pred does not hold, in their original order.
func RemoveMatches(items []*yaml.Node, pred func(*yaml.Node) bool) []*yaml.Node {
	out := make([]*yaml.Node, 0, len(items))
	for _, item := range items {
		if !pred(item) {
			out = append(out, item)
		}
	}
	return out
}
