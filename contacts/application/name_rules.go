package application

import (
	"strings"
	"unicode"

	"github.com/wappanel/wappanel/pkg/normalize"
)

// The name-update policy is an ordered rule chain: the first rule returning
// a decisive answer wins. Keeping each rule named makes the order auditable
// and lets tests exercise them one by one.

type nameDecision int

const (
	nameContinue nameDecision = iota
	nameAccept
	nameReject
)

type nameRule struct {
	name string
	eval func(existing, candidate, source string) nameDecision
}

var placeholderNames = map[string]bool{
	"no name": true,
	"unknown": true,
}

var systemKeywords = []string{"whatsapp", "gateway", "system", "bot"}

var automatedSources = map[string]bool{
	"api":       true,
	"bot":       true,
	"system":    true,
	"broadcast": true,
}

var nameRules = []nameRule{
	{
		name: "reject empty or identical candidate",
		eval: func(existing, candidate, _ string) nameDecision {
			c := strings.TrimSpace(candidate)
			if c == "" || c == strings.TrimSpace(existing) {
				return nameReject
			}
			return nameContinue
		},
	},
	{
		name: "accept when existing is not a real name",
		eval: func(existing, _, _ string) nameDecision {
			e := strings.TrimSpace(existing)
			if e == "" || placeholderNames[strings.ToLower(e)] || isAllDigits(e) || len(e) <= 2 {
				return nameAccept
			}
			return nameContinue
		},
	},
	{
		name: "reject unusable candidates",
		eval: func(_, candidate, source string) nameDecision {
			c := strings.TrimSpace(candidate)
			lower := strings.ToLower(c)
			if placeholderNames[lower] || len(c) <= 2 || isAllDigits(c) {
				return nameReject
			}
			for _, kw := range systemKeywords {
				if strings.Contains(lower, kw) {
					return nameReject
				}
			}
			if automatedSources[strings.ToLower(strings.TrimSpace(source))] {
				return nameReject
			}
			return nameContinue
		},
	},
	{
		name: "quality delta",
		eval: func(existing, candidate, _ string) nameDecision {
			delta := normalize.NameQuality(candidate) - normalize.NameQuality(existing)
			if delta >= 2 {
				return nameAccept
			}
			if delta < 0 {
				return nameReject
			}
			return nameContinue
		},
	},
	{
		name: "similarity tiebreak",
		eval: func(existing, candidate, _ string) nameDecision {
			// A near-identical candidate with no clear quality gain is just
			// a cosmetic variant; keep what we have.
			if normalize.Similarity(existing, candidate) > 0.8 {
				return nameReject
			}
			return nameAccept
		},
	},
}

// ShouldUpdateName decides whether candidate should replace the contact's
// current display name.
func ShouldUpdateName(existing, candidate, source string) bool {
	for _, rule := range nameRules {
		switch rule.eval(existing, candidate, source) {
		case nameAccept:
			return true
		case nameReject:
			return false
		}
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
