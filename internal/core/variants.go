package core

import "strings"

const handleSeparators = "._-"

// Variants derives the handle spellings to scan from a base handle.
//
// The base handle is always first, keeping its casing. Remaining candidates are
// the parts of the handle concatenated and joined with each separator.
// Empty and repeated candidates are dropped; first occurrence wins.
func Variants(base string) []string {
	parts := splitHandle(base)

	candidates := []string{
		base,
		strings.Join(parts, ""),
		strings.Join(parts, "."),
		strings.Join(parts, "-"),
		strings.Join(parts, "_"),
	}

	seen := make(map[string]struct{}, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		variants = append(variants, candidate)
	}
	return variants
}

// splitHandle splits at every run of separators, or at the midpoint of
// handles with four or more characters. Leading and trailing separators
// produce no empty parts.
func splitHandle(base string) []string {
	if strings.ContainsAny(base, handleSeparators) {
		return strings.FieldsFunc(base, func(r rune) bool {
			return strings.ContainsRune(handleSeparators, r)
		})
	}

	runes := []rune(base)
	if len(runes) >= 4 {
		mid := len(runes) / 2
		return []string{string(runes[:mid]), string(runes[mid:])}
	}
	return []string{base}
}
