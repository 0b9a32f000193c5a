// Package normalize contains the pure helpers the ingestion pipeline uses to
// converge contact identities: phone normalization, display-name quality
// scoring and string similarity. No I/O happens here.
package normalize

import (
	"strings"
	"unicode"
)

// Known remote-address suffixes issued by the gateway.
const (
	SuffixUser  = "@s.whatsapp.net"
	SuffixGroup = "@g.us"
	SuffixAlias = "@lid"
)

// Phone converts any gateway remote address or raw phone string into the
// canonical stored format: digits only, prefixed with "+" when the number is
// long enough to be a full international number. The function is idempotent,
// so re-normalizing a stored value is always safe.
func Phone(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	for _, suffix := range []string{SuffixUser, SuffixGroup, SuffixAlias} {
		if idx := strings.Index(s, suffix); idx >= 0 {
			s = s[:idx]
			break
		}
	}

	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	s = b.String()

	digits := strings.TrimPrefix(s, "+")
	if len(digits) >= 10 && !strings.HasPrefix(s, "+") {
		return "+" + digits
	}
	return s
}

// NameQuality scores how much a display name looks like a real person name.
// Higher is better; the score never goes below zero.
func NameQuality(name string) int {
	n := strings.TrimSpace(name)
	if n == "" {
		return 0
	}

	score := 0
	if len(n) >= 3 {
		score++
	}
	if len(n) >= 5 {
		score++
	}
	if strings.Contains(n, " ") {
		score += 2
	}

	// Spaces are exempt from the symbol penalty, so they do not break the
	// pure-letter bonus either.
	onlyLetters := true
	hasDigit := false
	hasSymbol := false
	for _, r := range n {
		switch {
		case unicode.IsLetter(r) || r == ' ':
		case unicode.IsDigit(r):
			onlyLetters = false
			hasDigit = true
		default:
			onlyLetters = false
			hasSymbol = true
		}
	}
	if onlyLetters {
		score += 2
	}
	if hasDigit {
		score -= 2
	}
	if hasSymbol {
		score--
	}

	if isCapitalized(n) {
		score++
	}

	if score < 0 {
		return 0
	}
	return score
}

func isCapitalized(name string) bool {
	words := strings.Fields(name)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		runes := []rune(w)
		if !unicode.IsUpper(runes[0]) {
			return false
		}
	}
	return true
}

// Similarity returns a ratio in [0,1] based on the Levenshtein distance of
// the two strings after trimming and lowercasing. Equal inputs return 1.
func Similarity(a, b string) float64 {
	x := strings.ToLower(strings.TrimSpace(a))
	y := strings.ToLower(strings.TrimSpace(b))
	if x == y {
		return 1.0
	}
	if x == "" || y == "" {
		return 0.0
	}

	dist := levenshtein(x, y)
	longest := len([]rune(x))
	if l := len([]rune(y)); l > longest {
		longest = l
	}
	return 1.0 - float64(dist)/float64(longest)
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
