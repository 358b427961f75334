// Package fuzzy implements keyword-overlap scoring between a free-text
// query and catalog titles. Scoring is recall-oriented: it penalizes
// missing query terms, not extra candidate terms, which favors false
// positives over false negatives against a large, verbosely-titled catalog.
package fuzzy

import (
	"regexp"
	"strings"
)

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// stopWords are domain terms too common to carry matching signal.
var stopWords = map[string]bool{
	"cambridge":    true,
	"pavers":       true,
	"pavingstones": true,
	"collection":   true,
	"design":       true,
	"kit":          true,
	"pc":           true,
	"piece":        true,
	"with":         true,
	"and":          true,
	"for":          true,
	"the":          true,
}

// synonyms canonicalize tokens that different sources spell differently.
var synonyms = map[string]string{
	"equine":    "horse",
	"grey":      "gray",
	"colour":    "color",
	"ledgstone": "ledgestone",
}

// KeywordSet extracts the normalized keyword set from text: lowercased,
// split on non-alphanumeric boundaries, tokens shorter than 2 characters
// and pure-numeric tokens dropped, synonyms applied, stop words removed.
func KeywordSet(text string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range tokenSplit.Split(strings.ToLower(text), -1) {
		if len(tok) < 2 || isNumeric(tok) {
			continue
		}
		if canon, ok := synonyms[tok]; ok {
			tok = canon
		}
		if stopWords[tok] {
			continue
		}
		out[tok] = true
	}
	return out
}

// Score returns |candidate ∩ query| / |query| in [0,1], or 0 for an
// empty query set.
func Score(candidate, query map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for tok := range query {
		if candidate[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
