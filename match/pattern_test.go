package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		expected Pattern
	}{
		{
			name:     "empty pattern",
			pattern:  "",
			expected: nil,
		},
		{
			name:     "single literal",
			pattern:  "grapes",
			expected: Pattern{{Text: "grapes"}},
		},
		{
			name:     "single wildcard",
			pattern:  "{}",
			expected: Pattern{{Wildcard: true}},
		},
		{
			name:     "wildcard suffix",
			pattern:  "{}.jpg",
			expected: Pattern{{Wildcard: true}, {Text: ".jpg"}},
		},
		{
			name:     "wildcard between literals",
			pattern:  "a{}b",
			expected: Pattern{{Text: "a"}, {Wildcard: true}, {Text: "b"}},
		},
		{
			name:     "adjacent wildcards",
			pattern:  "{}{}",
			expected: Pattern{{Wildcard: true}, {Wildcard: true}},
		},
		{
			name:     "unpaired braces are literals",
			pattern:  "{a}",
			expected: Pattern{{Text: "{a}"}},
		},
		{
			name:     "nested braces",
			pattern:  "{{}}",
			expected: Pattern{{Text: "{"}, {Wildcard: true}, {Text: "}"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Tokenize(tt.pattern)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.pattern, got.String())
		})
	}
}

func TestPatternWildcards(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Tokenize("abc").Wildcards())
	assert.Equal(t, 1, Tokenize("{}.jpg").Wildcards())
	assert.Equal(t, 3, Tokenize("{}a{}b{}").Wildcards())
}

func TestValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		value    string
		expected bool
	}{
		{
			name:     "literal equal",
			pattern:  "grapes",
			value:    "grapes",
			expected: true,
		},
		{
			name:     "literal unequal",
			pattern:  "grapes",
			value:    "grape",
			expected: false,
		},
		{
			name:     "literal is case sensitive",
			pattern:  "Grapes",
			value:    "grapes",
			expected: false,
		},
		{
			name:     "empty pattern matches only empty value",
			pattern:  "",
			value:    "",
			expected: true,
		},
		{
			name:     "empty pattern rejects value",
			pattern:  "",
			value:    "x",
			expected: false,
		},
		{
			name:     "lone wildcard matches anything",
			pattern:  "{}",
			value:    "anything at all",
			expected: true,
		},
		{
			name:     "lone wildcard matches empty",
			pattern:  "{}",
			value:    "",
			expected: true,
		},
		{
			name:     "wildcard suffix",
			pattern:  "{}.jpg",
			value:    "vacation.jpg",
			expected: true,
		},
		{
			name:     "wildcard suffix wrong extension",
			pattern:  "{}.jpg",
			value:    "vacation.png",
			expected: false,
		},
		{
			name:     "wildcard prefix",
			pattern:  "image/{}",
			value:    "image/png",
			expected: true,
		},
		{
			name:     "wildcard absorbs empty run",
			pattern:  "a{}b",
			value:    "ab",
			expected: true,
		},
		{
			name:     "wildcard between literals",
			pattern:  "a{}b",
			value:    "a-long-middle-b",
			expected: true,
		},
		{
			name:     "wildcard stops at first occurrence",
			pattern:  "{}b",
			value:    "xbyb",
			expected: false,
		},
		{
			name:     "trailing bytes after last literal",
			pattern:  "a{}b",
			value:    "abX",
			expected: false,
		},
		{
			name:     "leading literal must anchor",
			pattern:  "b{}",
			value:    "ab",
			expected: false,
		},
		{
			name:     "adjacent wildcards behave as one",
			pattern:  "{}{}",
			value:    "ab",
			expected: true,
		},
		{
			name:     "no percent decoding",
			pattern:  "a b",
			value:    "a%20b",
			expected: false,
		},
		{
			name:     "encoded bytes compare literally",
			pattern:  "a%20b",
			value:    "a%20b",
			expected: true,
		},
		{
			name:     "multiple wildcards",
			pattern:  "{}@{}.com",
			value:    "user@example.com",
			expected: true,
		},
		{
			name:     "first occurrence is never backtracked",
			pattern:  "{}ab",
			value:    "abab",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Value(tt.pattern, tt.value))
			// Tokenizing first must never change the verdict.
			assert.Equal(t, tt.expected, Tokenize(tt.pattern).Match(tt.value))
		})
	}
}

func TestValueAllocFree(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		Value("{}/thumb-{}.jpg", "images/thumb-0042.jpg")
	})
	require.Zero(t, allocs)
}
