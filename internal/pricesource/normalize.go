package pricesource

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticsRemover = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle canonicalizes a product title for comparison: lowercase,
// diacritics stripped, punctuation dropped, whitespace collapsed. Scraped
// titles carry edition markers and typographic noise that are irrelevant
// when checking whether a link still points at the right product.
func NormalizeTitle(title string) string {
	stripped, _, err := transform.String(diacriticsRemover, title)
	if err != nil {
		stripped = title
	}

	var b strings.Builder
	b.Grow(len(stripped))
	lastSpace := true
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// TitlesMatch reports whether a scraped title plausibly refers to the same
// product as the catalog title. One normalized title containing the other is
// enough; sellers append subtitle and format suffixes constantly.
func TitlesMatch(catalogTitle, scrapedTitle string) bool {
	a := NormalizeTitle(catalogTitle)
	b := NormalizeTitle(scrapedTitle)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
