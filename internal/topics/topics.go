// Package topics tags conversation text with a fixed vocabulary of
// World of Warcraft keywords.
package topics

import (
	"regexp"
	"strings"
)

// classes are matched as case-insensitive substrings, in this order.
var classes = []string{
	"rogue", "mage", "warrior", "hunter", "priest", "warlock", "shaman",
	"druid", "paladin", "monk", "demon hunter", "evoker", "death knight",
}

type pattern struct {
	tag string
	re  *regexp.Regexp
}

// patterns run after the class names.
var patterns = []pattern{
	{"mythic+", regexp.MustCompile(`(?i)(mythic\+|m\+)`)},
	{"raid", regexp.MustCompile(`(?i)\braids?\b`)},
	{"pvp", regexp.MustCompile(`(?i)\bpvp\b`)},
	{"bis", regexp.MustCompile(`(?i)\bbis\b`)},
}

// Extract returns the vocabulary tags present in text, each at most once,
// in vocabulary order.
func Extract(text string) []string {
	var out []string
	add := func(tag string) {
		for _, t := range out {
			if t == tag {
				return
			}
		}
		out = append(out, tag)
	}

	lower := strings.ToLower(text)
	for _, c := range classes {
		if strings.Contains(lower, c) {
			add(c)
		}
	}
	for _, p := range patterns {
		if p.re.MatchString(text) {
			add(p.tag)
		}
	}
	return out
}

// Merge returns prev followed by the entries of next not already present.
// The result is never nil.
func Merge(prev, next []string) []string {
	out := make([]string, 0, len(prev)+len(next))
	seen := make(map[string]bool, len(prev)+len(next))
	for _, list := range [][]string{prev, next} {
		for _, t := range list {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
