// Package extract pulls proposal identifiers and URLs out of natural-language
// prompts. Three extractors cooperate: a regex URL detector, a rule-based ID
// detector, and an LLM-backed ID detector that degrades to the rules.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

var (
	// urlPattern matches scheme-prefixed URLs up to the next whitespace or quote.
	urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

	// trailingPunct strips sentence punctuation glued to the end of a match.
	trailingPunct = regexp.MustCompile(`[.,;!?]+$`)

	// bareDomainPattern matches dotted hostname tokens without a scheme.
	bareDomainPattern = regexp.MustCompile(`\b[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
)

// ExtractLinks returns the deduplicated, lexically sorted set of absolute
// URLs found in text. It never fails; unusable input yields an empty set.
func ExtractLinks(text string) []string {
	urls := make(map[string]struct{})

	for _, match := range urlPattern.FindAllString(text, -1) {
		cleaned := trailingPunct.ReplaceAllString(match, "")
		if validURL(cleaned) {
			urls[cleaned] = struct{}{}
		}
	}

	// Bare-domain promotion runs only when no scheme-prefixed URL matched.
	// Dotted tokens are too easy to confuse with version numbers and ids to
	// risk when a real URL is already present.
	if len(urls) == 0 {
		for _, match := range bareDomainPattern.FindAllString(text, -1) {
			if !likelyDomain(match) {
				continue
			}
			candidate := "https://" + match
			if validURL(candidate) {
				urls[candidate] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(urls))
	for u := range urls {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// likelyDomain checks whether a bare token is plausibly a hostname.
func likelyDomain(s string) bool {
	if !strings.Contains(s, ".") {
		return false
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	if len(s) < 4 || len(s) > 200 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '_' || c == '/':
		default:
			return false
		}
	}
	return true
}

// validURL applies the acceptance rules for extracted URLs: http(s) scheme,
// sane length, and a dotted domain segment.
func validURL(u string) bool {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}
	if len(u) < 10 || len(u) > 500 {
		return false
	}

	_, rest, ok := strings.Cut(u, "://")
	if !ok || !strings.Contains(rest, ".") {
		return false
	}

	domain, _, _ := strings.Cut(rest, "/")
	if domain == "" || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return strings.Contains(domain, ".")
}
