package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// StripSpace removes every unicode whitespace rune, including
// non-breaking and narrow no-break spaces.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Closest returns the candidate most similar to name by Jaro-Winkler
// distance along with its similarity. ok is false when there are no candidates.
func Closest(name string, candidates []string) (best string, similarity float64, ok bool) {
	normalized := NormalizeName(name)
	for _, c := range candidates {
		sim := matchr.JaroWinkler(normalized, NormalizeName(c), false)
		if !ok || sim > similarity {
			best, similarity, ok = c, sim, true
		}
	}
	return best, similarity, ok
}
