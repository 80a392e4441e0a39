// Package match implements the pattern language used by the request and
// response filters.
//
// A pattern is an ordinary string in which the two-byte sequence {} acts as
// a wildcard. Patterns come in two flavors:
//
//   - Value patterns compare against a whole string, such as a header or
//     query value. Literal runs must appear in order and the wildcard absorbs
//     the bytes between them: "{}.jpg" matches any string ending in ".jpg".
//   - Path patterns compare segment by segment against a request path split
//     on "/". A segment that is exactly {} matches any single non-empty
//     segment: "/item/{}" matches "/item/grapes" but not "/item" or
//     "/item/grapes/1".
//
// Comparison is always byte-exact and case-sensitive, and never
// percent-decodes either side. Callers that need to compare against decoded
// text can use the encoding package.
//
// All functions are total: any pattern and any subject are valid inputs, and
// a malformed combination simply does not match.
package match
