package similarity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds case and unicode compatibility forms so that "Ｐython" and
// "python" compare equal.
func Normalize(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(s)))
}

func cacheKey(skill, field string) string {
	return Normalize(skill) + "|" + Normalize(field)
}

// fallbackVariations is used when the generator gives nothing back.
func fallbackVariations(skill string) []string {
	lower := Normalize(skill)
	return dedupe([]string{
		lower,
		strings.ReplaceAll(lower, " ", ""),
		strings.ReplaceAll(lower, " ", "-"),
		strings.ReplaceAll(lower, " ", "_"),
	})
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
