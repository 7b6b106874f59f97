// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package recommend

import (
	"strings"
	"unicode"
)

// maxPrefixLen bounds the class codes the rule table can hold.
const maxPrefixLen = 4

// RuleKind distinguishes ordinary class codes from the two-letter technology
// subclasses, which are matched before any other rule.
type RuleKind int

const (
	RuleClass RuleKind = iota
	RuleTechnology
)

// Rule is one entry of the classification table.
type Rule struct {
	Code string
	Kind RuleKind
}

// technologySubclasses are the two-letter subdivisions of class T
// (industrial technology) in the Chinese Library Classification.
var technologySubclasses = []string{
	"TB", "TD", "TE", "TF", "TG", "TH", "TJ", "TK",
	"TL", "TM", "TN", "TP", "TQ", "TS", "TU", "TV",
}

// DefaultRules returns the standard table: every main class letter A-Z,
// every letter+digit pair A0..Z9, and the technology subclasses.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, 26+26*10+len(technologySubclasses))
	for c := 'A'; c <= 'Z'; c++ {
		rules = append(rules, Rule{Code: string(c), Kind: RuleClass})
		for d := '0'; d <= '9'; d++ {
			rules = append(rules, Rule{Code: string([]rune{c, d}), Kind: RuleClass})
		}
	}
	for _, code := range technologySubclasses {
		rules = append(rules, Rule{Code: code, Kind: RuleTechnology})
	}
	return rules
}

// Classification is a parsed call number. The zero value means the call
// number carried no usable classification.
type Classification struct {
	Main     string
	Subclass string
}

// IsZero reports whether no classification was found.
func (c Classification) IsZero() bool {
	return c.Main == ""
}

// Parser classifies call numbers against a fixed rule table.
type Parser struct {
	codes      map[string]struct{}
	technology map[string]struct{}
}

// NewParser builds a parser from rules. Codes longer than four characters
// can never match and are ignored.
func NewParser(rules []Rule) *Parser {
	p := &Parser{
		codes:      make(map[string]struct{}, len(rules)),
		technology: make(map[string]struct{}),
	}
	for _, r := range rules {
		if r.Code == "" || len([]rune(r.Code)) > maxPrefixLen {
			continue
		}
		p.codes[r.Code] = struct{}{}
		if r.Kind == RuleTechnology {
			p.technology[r.Code] = struct{}{}
		}
	}
	return p
}

var defaultParser = NewParser(DefaultRules())

// Parse classifies raw with the default rule table.
func Parse(raw string) Classification {
	return defaultParser.Parse(raw)
}

// Parse keeps the classification segment of raw (everything before the
// first '/' or '\'), drops non-alphanumeric characters, and matches the
// longest known prefix of at most four characters. A string with no known
// prefix classifies as its own first character.
func (p *Parser) Parse(raw string) Classification {
	if i := strings.IndexAny(raw, `/\`); i >= 0 {
		raw = raw[:i]
	}
	clean := make([]rune, 0, len(raw))
	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return Classification{}
	}

	if clean[0] == 'T' && len(clean) >= 2 && unicode.IsLetter(clean[1]) {
		if _, ok := p.technology[string(clean[:2])]; ok {
			return Classification{Main: "T", Subclass: string(clean[:2])}
		}
	}

	for n := min(maxPrefixLen, len(clean)); n > 0; n-- {
		prefix := string(clean[:n])
		if _, ok := p.codes[prefix]; ok {
			return Classification{Main: string(clean[0]), Subclass: prefix}
		}
	}

	first := string(clean[0])
	return Classification{Main: first, Subclass: first}
}
