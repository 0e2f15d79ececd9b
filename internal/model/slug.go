package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent strips combining marks so "Søndergaard Héating" slugs cleanly.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a brand's unique key from its name: lowercase, accents
// stripped, runs of non-alphanumerics collapsed to a single hyphen, no
// leading or trailing hyphen. Pure and deterministic; the same name always
// maps to the same slug.
func Slugify(name string) string {
	if folded, _, err := transform.String(deaccent, name); err == nil {
		name = folded
	}
	name = strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// DiffBrandNames compares two brand-name lists case-insensitively and
// returns the names present now but absent before (added) and present
// before but absent now (removed). Original casing is preserved in the
// returned slices. Pure; the caller decides what to persist.
func DiffBrandNames(previous, current []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(previous))
	for _, n := range previous {
		prevSet[strings.ToLower(n)] = struct{}{}
	}
	currSet := make(map[string]struct{}, len(current))
	for _, n := range current {
		currSet[strings.ToLower(n)] = struct{}{}
	}

	for _, n := range current {
		if _, ok := prevSet[strings.ToLower(n)]; !ok {
			added = append(added, n)
		}
	}
	for _, n := range previous {
		if _, ok := currSet[strings.ToLower(n)]; !ok {
			removed = append(removed, n)
		}
	}
	return added, removed
}
