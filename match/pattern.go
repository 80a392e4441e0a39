package match

import "strings"

// Wildcard is the token that matches an arbitrary run of bytes in a value
// pattern, or an arbitrary non-empty segment in a path pattern.
const Wildcard = "{}"

// A Token is a single unit of a tokenized pattern.
type Token struct {
	// Text is the literal run of bytes to match. It is empty for wildcards.
	Text string
	// Wildcard reports whether the token is the {} wildcard.
	Wildcard bool
}

// A Pattern is a tokenized value pattern: literal runs and wildcards in the
// order they appear in the source string.
type Pattern []Token

// Tokenize splits a value pattern into its tokens. Every string is a valid
// pattern; a string without {} yields a single literal token and the empty
// string yields no tokens. Tokens reference the pattern's backing bytes and
// remain valid as long as the pattern string does.
func Tokenize(pattern string) Pattern {
	if pattern == "" {
		return nil
	}
	tokens := make(Pattern, 0, strings.Count(pattern, Wildcard)*2+1)
	for pattern != "" {
		i := strings.Index(pattern, Wildcard)
		if i < 0 {
			return append(tokens, Token{Text: pattern})
		}
		if i > 0 {
			tokens = append(tokens, Token{Text: pattern[:i]})
		}
		tokens = append(tokens, Token{Wildcard: true})
		pattern = pattern[i+len(Wildcard):]
	}
	return tokens
}

// String reassembles the source form of the pattern.
func (p Pattern) String() string {
	var b strings.Builder
	for _, tok := range p {
		if tok.Wildcard {
			b.WriteString(Wildcard)
		} else {
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

// Wildcards returns the number of wildcard tokens in the pattern.
func (p Pattern) Wildcards() int {
	n := 0
	for _, tok := range p {
		if tok.Wildcard {
			n++
		}
	}
	return n
}

// Match reports whether value matches the pattern. Literal tokens must occur
// in order; a wildcard absorbs the bytes up to the first occurrence of the
// following literal, and a trailing wildcard absorbs the rest of the value.
// The whole value must be consumed, so an empty pattern matches only the
// empty value. Adjacent wildcards behave as one.
func (p Pattern) Match(value string) bool {
	wild := false
	for _, tok := range p {
		if tok.Wildcard {
			wild = true
			continue
		}
		if wild {
			j := strings.Index(value, tok.Text)
			if j < 0 {
				return false
			}
			value = value[j+len(tok.Text):]
			wild = false
		} else {
			if !strings.HasPrefix(value, tok.Text) {
				return false
			}
			value = value[len(tok.Text):]
		}
	}
	return wild || value == ""
}

// Value reports whether value matches pattern under the same rules as
// Pattern.Match, scanning the pattern in place so that no tokenization (and
// no allocation) happens per call.
func Value(pattern, value string) bool {
	wild := false
	for pattern != "" {
		var lit string
		i := strings.Index(pattern, Wildcard)
		if i < 0 {
			lit, pattern = pattern, ""
		} else {
			lit, pattern = pattern[:i], pattern[i+len(Wildcard):]
		}
		if lit != "" {
			if wild {
				j := strings.Index(value, lit)
				if j < 0 {
					return false
				}
				value = value[j+len(lit):]
				wild = false
			} else {
				if !strings.HasPrefix(value, lit) {
					return false
				}
				value = value[len(lit):]
			}
		}
		if i >= 0 {
			wild = true
		}
	}
	return wild || value == ""
}
