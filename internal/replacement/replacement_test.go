package replacement

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/bgricker/pipemigrate/internal/match"
	"github.com/bgricker/pipemigrate/internal/pipeline"
)

func TestDefault(t *testing.T) {
	repl, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if repl.Stages == nil || len(repl.Stages.Content) != 1 {
		t.Fatalf("expected one default stage")
	}
	if repl.Steps == nil || repl.Jenkins == "" {
		t.Fatalf("expected steps and jenkins block in default template")
	}
	if !match.Any(repl.Markers, "BlackDuckSecurityScan@2") {
		t.Fatalf("default markers must recognise the default task")
	}
	var names []string
	for _, entry := range Entries(repl.Variables) {
		names = append(names, entry.Name)
	}
	if diff := cmp.Diff([]string{"BLACKDUCKSCA_URL", "BRIDGE_LOG_LEVEL"}, names); diff != "" {
		t.Fatalf("variables (-want +got):\n%s", diff)
	}
}

func TestParseWrapsSteps(t *testing.T) {
	repl, err := Parse([]byte(`steps:
  - task: BlackDuckSecurityScan@2
`), "steps.yml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stage := repl.Stages.Content[0]
	if pipeline.StageName(stage) != SyntheticStage {
		t.Fatalf("expected synthetic stage, got %q", pipeline.StageName(stage))
	}
	job := pipeline.Sequence(stage, "jobs").Content[0]
	if pipeline.JobName(job) != SyntheticJob || len(pipeline.Sequence(job, "steps").Content) != 1 {
		t.Fatalf("unexpected synthetic job")
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"stages not a sequence": "stages: nope\n",
		"steps not a sequence":  "steps: {a: b}\n",
		"variables scalar":      "stages: []\nvariables: x\n",
		"empty template":        "markers: [x]\n",
		"root sequence":         "- a\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(src), "bad.yml"); !errors.Is(err, pipeline.ErrMalformedDocument) {
				t.Fatalf("expected ErrMalformedDocument, got %v", err)
			}
		})
	}
	if _, err := Parse([]byte("markers: ['/(/']\nstages: []\n"), "bad.yml"); err == nil {
		t.Fatalf("expected invalid marker regexp to fail")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.yml")
	if err := os.WriteFile(path, []byte("jenkins: |\n  stage('X') {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	repl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if repl.Jenkins != "stage('X') {}\n" {
		t.Fatalf("unexpected jenkins block %q", repl.Jenkins)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for missing template")
	}
	if repl, err := Load(""); err != nil || repl.Stages == nil {
		t.Fatalf("empty path should load the default template: %v", err)
	}
}

func TestEntriesAndAsMapping(t *testing.T) {
	doc, err := pipeline.DecodeBytes([]byte(`- name: A
  value: "1"
- group: shared
- name: B
`), "vars.yml")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	seq := doc.Content[0]
	entries := Entries(seq)
	if len(entries) != 2 || entries[0].Name != "A" || entries[1].Value.Value != "" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	m := AsMapping(seq)
	if m.Kind != yaml.MappingNode || pipeline.ScalarValue(m, "A") != "1" {
		t.Fatalf("unexpected mapping conversion")
	}
	if AsMapping(nil) != nil {
		t.Fatalf("nil stays nil")
	}
}

func TestWithMarkers(t *testing.T) {
	repl, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	custom := repl.WithMarkers(match.MustCompile("bridge"))
	if match.Any(custom.Markers, "BlackDuckSecurityScan@2") {
		t.Fatalf("markers should be replaced")
	}
	if kept := repl.WithMarkers(nil); len(kept.Markers) != len(repl.Markers) {
		t.Fatalf("nil markers keep the template's own")
	}
}
