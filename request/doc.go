// Package request matches incoming HTTP requests without owning them.
//
// A Chain borrows an *http.Request and applies predicates one at a time:
//
//	m := request.Filter(req).
//		Method(http.MethodGet).
//		Path("/item/{}").
//		Query("cool", "{}")
//	if item, ok := m.Var(1); ok {
//		// the request is a GET for /item/<item> with a "cool" query key
//	}
//
// Every predicate is a total function from chain to chain. The first
// predicate that rejects the request disqualifies the chain and records
// which kind of predicate failed; predicates applied after that are no-ops,
// so a chain never comes back to life and the recorded Status always names
// the first failure.
//
// Matching is byte-exact against the wire form of the request: the escaped
// path and the raw query are compared without percent-decoding. Patterns may
// use the {} wildcard described in the match package.
//
// The package also provides QueryIter and SegmentIter, forward-only
// iterators over the raw query and path that neither decode nor allocate.
package request
