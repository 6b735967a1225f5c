package core

import (
	"strings"
	"unicode"
)

var legalSuffixes = map[string]bool{
	"inc": true, "incorporated": true, "corp": true, "corporation": true,
	"co": true, "company": true, "ltd": true, "limited": true, "plc": true,
	"llc": true, "lp": true, "sa": true, "ag": true, "nv": true, "the": true,
	"holdings": true, "group": true,
}

// NormalizeCompanyName reduces an issuer or company title to a comparison key:
// lower case, punctuation removed, legal-form words dropped, single spaces.
// "Apple Inc." and "APPLE INC" both become "apple".
func NormalizeCompanyName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '&':
			return ' '
		case r == '.' || r == '\'':
			return -1
		default:
			return ' '
		}
	}, name)

	words := strings.Fields(cleaned)
	kept := words[:0]
	for _, w := range words {
		if legalSuffixes[w] {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return strings.Join(words, " ")
	}
	return strings.Join(kept, " ")
}
