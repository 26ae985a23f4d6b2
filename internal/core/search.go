package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const zeroWidthNonJoiner = '\u200c'

// foldPersian maps Arabic letter variants to their Persian forms and
// Persian/Arabic-Indic digits to ASCII so typed queries match stored text.
func foldPersian(r rune) rune {
	switch {
	case r == 'ي' || r == 'ى':
		return 'ی'
	case r == 'ك':
		return 'ک'
	case r == 'ة':
		return 'ه'
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	}
	return r
}

// normalizeSearch prepares text for substring matching. Transformers are
// stateful, so a chain is built per call.
func normalizeSearch(s string) string {
	chain := transform.Chain(
		norm.NFKC,
		runes.Remove(runes.Predicate(func(r rune) bool { return r == zeroWidthNonJoiner })),
		runes.Map(foldPersian),
	)
	out, _, err := transform.String(chain, strings.TrimSpace(s))
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// matchesQuery reports whether any field contains query after normalisation.
// An empty query matches everything.
func matchesQuery(query string, fields ...string) bool {
	q := normalizeSearch(query)
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(normalizeSearch(f), q) {
			return true
		}
	}
	return false
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
