package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify derives a URL-safe identifier from a display name. The result is
// lowercase, diacritics are stripped, and every run of characters outside
// [a-z0-9] collapses into a single hyphen with no leading or trailing
// hyphen. Slugify is idempotent.
func Slugify(name string) string {
	lowered := strings.ToLower(name)

	// Transformers carry internal buffers, so the chain is built per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		isAllowed := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAllowed {
			pendingHyphen = true
			continue
		}
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteRune(r)
	}
	return b.String()
}
