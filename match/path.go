package match

import "strings"

// nextSegment returns the path segment starting at offset i together with the
// offset of the following segment. Splitting follows strings.Split semantics:
// a leading or trailing "/" produces an empty segment, so "/a/" has the three
// segments "", "a" and "". The returned offset exceeds len(s) once the final
// segment has been produced.
func nextSegment(s string, i int) (seg string, next int) {
	j := strings.IndexByte(s[i:], '/')
	if j < 0 {
		return s[i:], len(s) + 1
	}
	return s[i : i+j], i + j + 1
}

// Path reports whether path matches the path pattern. Both strings are split
// on "/" and compared segment by segment: the segment counts must be equal,
// literal segments must be byte-identical and a {} segment matches any single
// non-empty segment. A segment is a wildcard only when it is exactly {};
// anywhere else the braces are ordinary bytes.
func Path(pattern, path string) bool {
	pi, vi := 0, 0
	for {
		pdone, vdone := pi > len(pattern), vi > len(path)
		if pdone || vdone {
			return pdone && vdone
		}
		pseg, pnext := nextSegment(pattern, pi)
		vseg, vnext := nextSegment(path, vi)
		if pseg == Wildcard {
			if vseg == "" {
				return false
			}
		} else if pseg != vseg {
			return false
		}
		pi, vi = pnext, vnext
	}
}

// PathPrefix reports whether the pattern's segments are a leading subsequence
// of the path's segments, under the same per-segment rules as Path. The match
// only succeeds at a segment boundary, so "/api" is a prefix of "/api/users"
// but not of "/apikey". A pattern ending in "/" is a pure prefix: its empty
// final segment does not need to consume a path segment.
func PathPrefix(pattern, path string) bool {
	pattern = strings.TrimSuffix(pattern, "/")
	pi, vi := 0, 0
	for {
		if pi > len(pattern) {
			return true
		}
		if vi > len(path) {
			return false
		}
		pseg, pnext := nextSegment(pattern, pi)
		vseg, vnext := nextSegment(path, vi)
		if pseg == Wildcard {
			if vseg == "" {
				return false
			}
		} else if pseg != vseg {
			return false
		}
		pi, vi = pnext, vnext
	}
}

// PathVar returns the path segment captured by the n-th wildcard of the
// pattern, counting from 1 in source order. The boolean is false when the path
// does not match the pattern or when n is out of range. The returned string
// is a substring of path.
func PathVar(pattern, path string, n int) (string, bool) {
	if n < 1 {
		return "", false
	}
	var captured string
	seen := 0
	pi, vi := 0, 0
	for {
		pdone, vdone := pi > len(pattern), vi > len(path)
		if pdone || vdone {
			if pdone && vdone && seen >= n {
				return captured, true
			}
			return "", false
		}
		pseg, pnext := nextSegment(pattern, pi)
		vseg, vnext := nextSegment(path, vi)
		switch {
		case pseg == Wildcard:
			if vseg == "" {
				return "", false
			}
			seen++
			if seen == n {
				captured = vseg
			}
		case pseg != vseg:
			return "", false
		}
		pi, vi = pnext, vnext
	}
}

// PathVars returns every wildcard capture in source order, or nil when the
// path does not match the pattern. A matching pattern without wildcards also
// returns nil; use Path to tell the two apart.
func PathVars(pattern, path string) []string {
	var vars []string
	pi, vi := 0, 0
	for {
		pdone, vdone := pi > len(pattern), vi > len(path)
		if pdone || vdone {
			if pdone && vdone {
				return vars
			}
			return nil
		}
		pseg, pnext := nextSegment(pattern, pi)
		vseg, vnext := nextSegment(path, vi)
		switch {
		case pseg == Wildcard:
			if vseg == "" {
				return nil
			}
			vars = append(vars, vseg)
		case pseg != vseg:
			return nil
		}
		pi, vi = pnext, vnext
	}
}
