package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhone_StripsGatewaySuffixes(t *testing.T) {
	assert.Equal(t, "+5511987654321", Phone("5511987654321@s.whatsapp.net"))
	assert.Equal(t, "+5511987654321", Phone("5511987654321@lid"))
	assert.Equal(t, "+5511987654321", Phone("5511987654321@g.us"))
}

func TestPhone_ShortNumbersKeepNoPlus(t *testing.T) {
	// Below 10 digits we cannot assume an international number.
	assert.Equal(t, "5551234", Phone("5551234@s.whatsapp.net"))
	assert.Equal(t, "12345", Phone("123-45"))
}

func TestPhone_PreservesExistingPlus(t *testing.T) {
	assert.Equal(t, "+5511987654321", Phone("+55 (11) 98765-4321"))
	assert.Equal(t, "+123", Phone("+123"))
}

func TestPhone_IsIdempotent(t *testing.T) {
	inputs := []string{
		"5511987654321@s.whatsapp.net",
		"+55 11 98765 4321",
		"5551234",
		"",
		"abc",
		"+1 (555) 000-1111",
	}
	for _, in := range inputs {
		once := Phone(in)
		assert.Equal(t, once, Phone(once), "Phone must be a projection for %q", in)
	}
}

func TestNameQuality(t *testing.T) {
	cases := []struct {
		name  string
		score int
	}{
		{"", 0},
		{"Jo", 0},
		{"551198765", 0},   // digits penalized to the floor
		{"Maria Silva", 7}, // length + space + letters + capitalized
		{"Maria", 5},       // no space bonus
		{"maria silva", 6}, // loses the capitalization point
		{"M@ria!", 2},      // symbols penalized
	}
	for _, c := range cases {
		assert.Equal(t, c.score, NameQuality(c.name), "name %q", c.name)
	}
}

func TestNameQuality_NeverNegative(t *testing.T) {
	assert.GreaterOrEqual(t, NameQuality("12!@#"), 0)
	assert.GreaterOrEqual(t, NameQuality("9"), 0)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Maria", "maria "))
	assert.Equal(t, 0.0, Similarity("", "abc"))

	// One edit over five runes.
	assert.InDelta(t, 0.8, Similarity("maria", "marta"), 0.001)

	// Completely different strings score low.
	assert.Less(t, Similarity("maria", "zxqwv"), 0.3)
}
