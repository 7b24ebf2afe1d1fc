package normalize

import (
	"regexp"
	"strings"
)

var (
	camelRe        = regexp.MustCompile(`([a-z])([A-Z])`)
	punctRe        = regexp.MustCompile(`[_\-]`)
	punctOrSpaceRe = regexp.MustCompile(`[_\-\s]`)
	parenRe        = regexp.MustCompile(`\(.*?\)`)
	bracketRe      = regexp.MustCompile(`\[.*?\]`)
	hyphenRe       = regexp.MustCompile(`\s*-\s*`)
)

// Expander widens a property name into a candidate set using spelling
// variants and the injected synonym table.
type Expander struct {
	table Table
}

// NewExpander creates an expander over the given synonym table. A nil table
// disables synonym lookup but variant generation still applies.
func NewExpander(table Table) *Expander {
	return &Expander{table: table}
}

// Expand returns the candidate-name set for a property name. Callers must
// treat the result as an unordered set. Empty input yields an empty set.
func (e *Expander) Expand(name string) []string {
	if name == "" {
		return nil
	}

	candidates := make(map[string]struct{})
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			candidates[s] = struct{}{}
		}
	}

	for _, v := range baseVariants(name) {
		add(v)

		if e.table != nil {
			for _, syn := range e.table.Lookup(Name(v)) {
				add(syn)
			}
		}

		// Hyphen/space collapse variants catch forms like "U-value",
		// "U value" and "Uvalue".
		add(hyphenRe.ReplaceAllString(v, "-"))
		add(hyphenRe.ReplaceAllString(v, " "))
		add(spaceRunRe.ReplaceAllString(v, ""))
	}

	out := make([]string, 0, len(candidates))
	for c := range candidates {
		out = append(out, c)
	}
	return out
}

// NormalizedSet returns the normalized forms of all candidates for a name.
func (e *Expander) NormalizedSet(name string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range e.Expand(name) {
		set[Name(c)] = struct{}{}
	}
	return set
}

// splitCamel inserts a space between a lowercase letter and a following
// uppercase letter.
func splitCamel(s string) string {
	return camelRe.ReplaceAllString(s, "$1 $2")
}

// baseVariants generates spelling variants of a raw name: the raw form, a
// camel-split form, punctuation-to-space and punctuation-stripped forms, and
// parenthetical/bracketed-suffix-stripped forms of each.
func baseVariants(name string) []string {
	withSpaces := splitCamel(name)
	forms := []string{
		name,
		withSpaces,
		punctRe.ReplaceAllString(name, " "),
		punctRe.ReplaceAllString(withSpaces, " "),
		punctOrSpaceRe.ReplaceAllString(name, ""),
		punctOrSpaceRe.ReplaceAllString(withSpaces, ""),
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, f := range forms {
		add(f)
		add(parenRe.ReplaceAllString(f, ""))
		add(bracketRe.ReplaceAllString(f, ""))
	}
	return out
}
