package replace

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestApplyLiteral(t *testing.T) {
	rules := []Rule{Literal("v__VERSION__", "v1.2.3")}
	got := Apply(discard(), rules, "Download v__VERSION__ or pin v__VERSION__.")
	want := "Download v1.2.3 or pin v1.2.3."
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyRegexMultiline(t *testing.T) {
	rules := []Rule{Regex(`^Status: \w+$`, "Status: done")}
	text := "Status: open\nbody\nStatus: open\n"
	got := Apply(discard(), rules, text)
	want := "Status: done\nbody\nStatus: done\n"
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyInvalidRegexIsSkipped(t *testing.T) {
	rules := []Rule{
		Regex(`([`, "x"),
		Literal("a", "b"),
	}
	got := Apply(discard(), rules, "aaa")
	if got != "bbb" {
		t.Errorf("later rules must still run, got %q", got)
	}
}

func TestApplyOrderMatters(t *testing.T) {
	rules := []Rule{
		Literal("one", "two"),
		Literal("two", "three"),
	}
	if got := Apply(discard(), rules, "one"); got != "three" {
		t.Errorf("Apply = %q, want %q", got, "three")
	}
}

func TestBranding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"plain awesome heading",
			"# Awesome Go\n\nintro\n",
			"# Awesome Go with stars\n\nintro\n",
		},
		{
			"hyphenated heading",
			"# Awesome-Selfhosted\n",
			"# Awesome-Selfhosted with stars\n",
		},
		{
			"bare awesome",
			"# Awesome\n",
			"# Awesome with stars\n",
		},
		{
			"idempotent",
			"# Awesome Go with stars\n",
			"# Awesome Go with stars\n",
		},
		{
			"non-awesome heading untouched",
			"# Curated Go\n",
			"# Curated Go\n",
		},
		{
			"deeper heading untouched",
			"## Awesome Go\n",
			"## Awesome Go\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(discard(), []Rule{Branding()}, tt.in)
			if got != tt.want {
				t.Errorf("Apply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules("a:::b\n\nfoo:::bar baz\n", KindLiteral)
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(rules))
	}
	if rules[1].Find != "foo" || rules[1].Replace != "bar baz" {
		t.Errorf("rule 1 = %+v", rules[1])
	}

	if _, err := ParseRules("no-separator", KindLiteral); err == nil {
		t.Error("expected error for missing separator")
	}
}
