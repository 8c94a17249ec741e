package provider

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"azure-pipelines.yml", KindAzure},
		{"pipelines/release.yaml", KindAzure},
		{".github/workflows/ci.yml", KindGitHub},
		{"Jenkinsfile", KindJenkins},
		{"ci/Jenkinsfile.release", KindJenkins},
		{"ci/build.groovy", KindJenkins},
	}
	for _, c := range cases {
		if got := Detect(c.path); got != c.want {
			t.Fatalf("Detect(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	for input, want := range map[string]Kind{"": KindAuto, "AUTO": KindAuto, "azure": KindAzure, " github ": KindGitHub, "jenkins": KindJenkins} {
		got, err := ParseKind(input)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseKind("gitlab"); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}
