// Package normalize provides the text normalization shared by every
// matching stage. Both variants are pure and idempotent.
package normalize

import (
	"regexp"
	"sort"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	parentheticalRegex  = regexp.MustCompile(`\(.*?\)`)
	ampersandCommaRegex = regexp.MustCompile(`[&,]`)
	nonAlphanumRegex    = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Clean lowercases, removes any parenthesized substring entirely (the
// retailer suffixes loose items with annotations like "(C)"), and trims
// surrounding whitespace.
func Clean(s string) string {
	s = parentheticalRegex.ReplaceAllString(s, "")
	return strings.ToLower(strings.TrimSpace(s))
}

// CleanStrict is the stricter variant used for category comparison. It
// additionally replaces "&" and "," with the word "and", strips all
// remaining non-alphanumeric characters, and collapses whitespace runs
// to single spaces.
func CleanStrict(s string) string {
	s = strings.ToLower(s)
	s = ampersandCommaRegex.ReplaceAllString(s, " and ")
	s = nonAlphanumRegex.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// CommonWords returns the sorted common word tokens of two strings under
// strict normalization, joined by single spaces. Empty when the strings
// share no words.
func CommonWords(a, b string) string {
	wordsA := strings.Fields(CleanStrict(a))
	inA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		inA[w] = true
	}

	seen := make(map[string]bool)
	var common []string
	for _, w := range strings.Fields(CleanStrict(b)) {
		if inA[w] && !seen[w] {
			common = append(common, w)
			seen[w] = true
		}
	}
	sort.Strings(common)
	return strings.Join(common, " ")
}

// TitleFirstWord upper-cases the first letter of the first word only,
// matching how suggested canonical category labels are presented.
func TitleFirstWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
