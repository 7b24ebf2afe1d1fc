package engine

import (
	"strings"

	"github.com/pb40development/ifc-normalizer/internal/normalize"
)

// MatchTier identifies how a watched property name matched a collected
// property. Lower tiers are stricter and always win over higher ones.
type MatchTier int

const (
	// MatchNone means no collected property matched.
	MatchNone MatchTier = iota
	// MatchExact is a byte-for-byte name match.
	MatchExact
	// MatchNormalized matches after case folding, accent stripping and
	// separator collapsing.
	MatchNormalized
	// MatchSynonym matches through the bilingual synonym table.
	MatchSynonym
	// MatchLoose matches by containment between normalized names.
	MatchLoose
)

// String returns the tier name used in logs and reports.
func (t MatchTier) String() string {
	switch t {
	case MatchExact:
		return "exact"
	case MatchNormalized:
		return "normalized"
	case MatchSynonym:
		return "synonym"
	case MatchLoose:
		return "loose"
	default:
		return "none"
	}
}

// Matcher locates a watched property among an element's collected
// properties using tiered name matching.
type Matcher struct {
	expander *normalize.Expander
}

// NewMatcher creates a matcher over the given synonym expander.
func NewMatcher(expander *normalize.Expander) *Matcher {
	return &Matcher{expander: expander}
}

// Find returns the first collected property matching name at the lowest
// possible tier. Each tier scans all properties in document order before
// the next tier is tried, so a normalized match anywhere beats a loose
// match everywhere.
func (m *Matcher) Find(name string, props []Property) (*Property, MatchTier) {
	// Tier 1: exact, ignoring case only.
	for i := range props {
		if strings.EqualFold(props[i].Name, name) {
			return &props[i], MatchExact
		}
	}

	// Tier 2: normalized. Separators are dropped entirely so camel-case
	// and snake-case spellings of the same name compare equal.
	want := normalize.Name(name)
	wantKey := collapse(want)
	if wantKey != "" {
		for i := range props {
			if collapse(normalize.Name(props[i].Name)) == wantKey {
				return &props[i], MatchNormalized
			}
		}
	}

	// Tier 3: synonym set intersection.
	wantSet := m.expander.NormalizedSet(name)
	for i := range props {
		for candidate := range m.expander.NormalizedSet(props[i].Name) {
			if _, ok := wantSet[candidate]; ok {
				return &props[i], MatchSynonym
			}
		}
	}

	// Tier 4: loose containment between normalized forms. Too-short
	// names are excluded to keep single letters from matching everything.
	if len(want) >= 4 {
		for i := range props {
			have := normalize.Name(props[i].Name)
			if len(have) >= 4 && (strings.Contains(have, want) || strings.Contains(want, have)) {
				return &props[i], MatchLoose
			}
		}
	}

	return nil, MatchNone
}

// FindLocal matches with the strict tiers only (exact and normalized).
// Used for the element-local value lookup, where a synonym hit would risk
// reporting an unrelated attribute's value as the old value.
func (m *Matcher) FindLocal(name string, props []Property) (*Property, MatchTier) {
	for i := range props {
		if strings.EqualFold(props[i].Name, name) {
			return &props[i], MatchExact
		}
	}
	wantKey := collapse(normalize.Name(name))
	if wantKey != "" {
		for i := range props {
			if collapse(normalize.Name(props[i].Name)) == wantKey {
				return &props[i], MatchNormalized
			}
		}
	}
	return nil, MatchNone
}

func collapse(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
