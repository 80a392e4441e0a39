package request

import (
	"iter"
	"net/http"
	"strings"
)

// QueryIter is a forward-only iterator over the raw query of a request.
// Pairs are produced in textual order, split on "&" and then on the first
// "=" of each pair. Neither keys nor values are percent-decoded and both are
// substrings of the query, so no allocation happens per pair. Any byte
// sequence is a valid query: a pair without "=" yields the whole pair as the
// key with an empty value, and a stray "&" yields an empty key and value.
//
// The zero value is an exhausted iterator. A new iterator is required to
// scan the query again.
type QueryIter struct {
	rest string
	live bool
}

// NewQueryIter returns an iterator over the raw query of req. A request
// without a query yields no pairs.
func NewQueryIter(req *http.Request) QueryIter {
	q := req.URL.RawQuery
	return QueryIter{rest: q, live: q != ""}
}

// Next returns the next raw key/value pair. ok is false once the query is
// exhausted.
func (it *QueryIter) Next() (key, value string, ok bool) {
	if !it.live {
		return "", "", false
	}
	pair := it.rest
	if i := strings.IndexByte(it.rest, '&'); i >= 0 {
		pair, it.rest = it.rest[:i], it.rest[i+1:]
	} else {
		it.rest = ""
		it.live = false
	}
	if j := strings.IndexByte(pair, '='); j >= 0 {
		return pair[:j], pair[j+1:], true
	}
	return pair, "", true
}

// SegmentIter is a forward-only iterator over the segments of a request
// path in its escaped wire form. Splitting mirrors the path matcher: a
// rooted path starts with an empty segment and a trailing "/" ends with
// one, so "/item/grapes" yields "", "item", "grapes". An empty path yields
// no segments. Segments are substrings of the path and no allocation
// happens per segment.
//
// The zero value is an exhausted iterator.
type SegmentIter struct {
	rest string
	live bool
}

// NewSegmentIter returns an iterator over the escaped path of req.
func NewSegmentIter(req *http.Request) SegmentIter {
	p := rawPath(req)
	return SegmentIter{rest: p, live: p != ""}
}

// Next returns the next path segment. ok is false once the path is
// exhausted.
func (it *SegmentIter) Next() (segment string, ok bool) {
	if !it.live {
		return "", false
	}
	seg := it.rest
	if i := strings.IndexByte(it.rest, '/'); i >= 0 {
		seg, it.rest = it.rest[:i], it.rest[i+1:]
	} else {
		it.rest = ""
		it.live = false
	}
	return seg, true
}

// Queries returns the raw query pairs of req as a range-over-func sequence.
func Queries(req *http.Request) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		it := NewQueryIter(req)
		for k, v, ok := it.Next(); ok; k, v, ok = it.Next() {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Segments returns the escaped path segments of req as a range-over-func
// sequence.
func Segments(req *http.Request) iter.Seq[string] {
	return func(yield func(string) bool) {
		it := NewSegmentIter(req)
		for seg, ok := it.Next(); ok; seg, ok = it.Next() {
			if !yield(seg) {
				return
			}
		}
	}
}
