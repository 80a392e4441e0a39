// Package encoding compares percent-encoded strings without allocating.
//
// The matchers in this module never decode their input, so a pattern written
// in plain text will not match its encoded form on the wire. PercentEqual
// bridges the gap for callers that need to compare a raw query or path value
// against a decoded expectation.
package encoding

// PercentEqual reports whether encoded equals plain, either verbatim or once
// percent escapes are decoded. A "+" in encoded stands for a space and "%XX"
// for the byte with hex value XX. Malformed escapes never panic or error;
// they simply fail the comparison.
func PercentEqual(encoded, plain string) bool {
	if encoded == plain {
		return true
	}
	j := 0
	for i := 0; i < len(encoded); {
		if j >= len(plain) {
			return false
		}
		var b byte
		switch encoded[i] {
		case '%':
			if i+2 >= len(encoded) {
				return false
			}
			hi, ok := unhex(encoded[i+1])
			if !ok {
				return false
			}
			lo, ok := unhex(encoded[i+2])
			if !ok {
				return false
			}
			b = hi<<4 | lo
			i += 3
		case '+':
			b = ' '
			i++
		default:
			b = encoded[i]
			i++
		}
		if b != plain[j] {
			return false
		}
		j++
	}
	return j == len(plain)
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
