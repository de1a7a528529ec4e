package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	hasURLPattern   = regexp.MustCompile(`(?i)https?://`)
	proposalPattern = regexp.MustCompile(`(?i)\bproposal\s+(?:id\s+)?(\d+)\b`)

	// Identifier-shaped alphanumeric tokens: letter-prefixed codes and
	// anything with "ID" glued to digits.
	identPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b[a-z]{2,}\d+\b`),
		regexp.MustCompile(`(?i)\b[a-z]+\d+[a-z]*\b`),
		regexp.MustCompile(`(?i)\b\w*ID\d+\w*\b`),
	}

	standaloneNumber = regexp.MustCompile(`\b(\d{3,})\b`)
	numberPair       = regexp.MustCompile(`(?i)\b(\d{3,})\s+and\s+(\d{3,})\b`)
)

// stopWords excludes common words the letter+digit patterns can catch.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {},
}

// HeuristicIDs extracts identifier candidates from text using rules alone.
// When the text contains URLs the rules turn conservative: URLs embed numeric
// path segments that must not be double-counted as free-standing ids.
// It never fails; the worst case is an empty set.
func HeuristicIDs(text string) []string {
	ids := make(map[string]struct{})
	urls := urlPattern.FindAllString(text, -1)

	addIfClean := func(token string) {
		if _, stop := stopWords[strings.ToLower(token)]; stop {
			return
		}
		for _, u := range urls {
			if strings.Contains(u, token) {
				return
			}
		}
		ids[token] = struct{}{}
	}

	// "proposal 1679" / "proposal id 1679"
	for _, m := range proposalPattern.FindAllStringSubmatch(text, -1) {
		addIfClean(m[1])
	}

	// Alphanumeric identifier shapes.
	for _, p := range identPatterns {
		for _, m := range p.FindAllString(text, -1) {
			addIfClean(m)
		}
	}

	if !hasURLPattern.MatchString(text) {
		// Permissive mode: bare 3+ digit runs and "1679 and 1680" pairs.
		for _, m := range numberPair.FindAllStringSubmatch(text, -1) {
			ids[m[1]] = struct{}{}
			ids[m[2]] = struct{}{}
		}
		for _, m := range standaloneNumber.FindAllStringSubmatch(text, -1) {
			ids[m[1]] = struct{}{}
		}
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	SortIDs(out)
	return out
}

// SortIDs orders identifier tokens in place: numeric ids sort numerically
// first, non-numeric tokens sort lexically after them.
func SortIDs(ids []string) {
	numeric := func(s string) (int64, bool) {
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	}
	sort.Slice(ids, func(i, j int) bool {
		na, aok := numeric(ids[i])
		nb, bok := numeric(ids[j])
		switch {
		case aok && bok:
			return na < nb
		case aok:
			return true
		case bok:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}
