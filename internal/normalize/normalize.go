// Package normalize canonicalizes property names and expands them into
// synonym candidate sets for matching against portal definitions.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	punctRunRe = regexp.MustCompile(`[_\-]+`)
	spaceRunRe = regexp.MustCompile(`\s+`)
)

// germanReplacer transliterates umlauts and sharp s the way German property
// names are commonly romanized, so "Höhe" and "Hoehe" compare equal.
var germanReplacer = strings.NewReplacer(
	"ä", "ae", "Ä", "ae",
	"ö", "oe", "Ö", "oe",
	"ü", "ue", "Ü", "ue",
	"ß", "ss",
)

// Name canonicalizes a property name for comparison: umlauts are
// transliterated, remaining diacritics stripped, underscore/hyphen runs and
// whitespace runs collapse to single spaces, and the result is trimmed and
// lower-cased. Idempotent.
func Name(s string) string {
	result := germanReplacer.Replace(strings.ToLower(s))
	stripped, _, err := transform.String(stripAccents, result)
	if err == nil {
		result = stripped
	}
	result = punctRunRe.ReplaceAllString(result, " ")
	result = spaceRunRe.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}
