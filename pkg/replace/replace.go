// Package replace applies user-supplied text substitutions to a document
// before structural parsing.
//
// Rules come in three forms: literal find/replace pairs, multi-line regular
// expressions, and the built-in branding rule that tags the document's
// top-level "Awesome ..." heading. Rules are ordered and applied
// sequentially, left to right; an invalid regex is skipped with a warning
// rather than aborting the run.
package replace

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// RuleKind distinguishes the rule variants.
type RuleKind int

const (
	// KindLiteral replaces every occurrence of Find with Replace.
	KindLiteral RuleKind = iota
	// KindRegex compiles Find as a multi-line pattern and replaces all matches.
	KindRegex
	// KindBranding appends " with stars" to a top-level "# Awesome ..." heading.
	KindBranding
)

// Rule is a single ordered substitution.
type Rule struct {
	Kind    RuleKind
	Find    string
	Replace string
}

// Literal builds a literal rule.
func Literal(find, replace string) Rule {
	return Rule{Kind: KindLiteral, Find: find, Replace: replace}
}

// Regex builds a regex rule. The pattern is compiled in multi-line mode
// when the rules are applied; compilation failures skip the rule.
func Regex(pattern, replace string) Rule {
	return Rule{Kind: KindRegex, Find: pattern, Replace: replace}
}

// Branding builds the branding rule.
func Branding() Rule {
	return Rule{Kind: KindBranding}
}

// pairSeparator splits the find and replace halves of a serialized rule.
const pairSeparator = ":::"

// brandingSuffix is appended to the matched heading.
const brandingSuffix = " with stars"

// brandingHeading matches a top-level heading of the form "# Awesome <rest>"
// with the rest space or hyphen separated.
var brandingHeading = regexp.MustCompile(`(?m)^#[ \t]+Awesome(?:[ -][^\n]*)?$`)

// ParseRules parses newline-separated "find:::replace" pairs into rules of
// the given kind. Blank lines are ignored. Lines without the separator are
// rejected.
func ParseRules(s string, kind RuleKind) ([]Rule, error) {
	var rules []Rule
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		find, repl, ok := strings.Cut(line, pairSeparator)
		if !ok {
			return nil, fmt.Errorf("malformed rule %q: missing %q separator", line, pairSeparator)
		}
		rules = append(rules, Rule{Kind: kind, Find: find, Replace: repl})
	}
	return rules, nil
}

// Apply runs the rules over text in order and returns the result.
// Invalid regex rules are logged at warn level and skipped.
func Apply(logger *log.Logger, rules []Rule, text string) string {
	for _, r := range rules {
		switch r.Kind {
		case KindLiteral:
			text = strings.ReplaceAll(text, r.Find, r.Replace)
		case KindRegex:
			re, err := regexp.Compile("(?m)" + r.Find)
			if err != nil {
				if logger != nil {
					logger.Warn("skipping invalid regex rule", "pattern", r.Find, "err", err)
				}
				continue
			}
			text = re.ReplaceAllString(text, r.Replace)
		case KindBranding:
			text = applyBranding(text)
		}
	}
	return text
}

// applyBranding tags the first matching heading, once. Headings that
// already carry the suffix are left alone so repeated runs stay idempotent.
func applyBranding(text string) string {
	loc := brandingHeading.FindStringIndex(text)
	if loc == nil {
		return text
	}
	heading := text[loc[0]:loc[1]]
	if strings.HasSuffix(heading, brandingSuffix) {
		return text
	}
	return text[:loc[1]] + brandingSuffix + text[loc[1]:]
}
