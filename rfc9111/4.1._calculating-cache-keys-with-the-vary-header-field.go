package rfc9111

import (
	"net/http"
	"sort"
)

// §  4.1.  Calculating Cache Keys with the Vary Header Field
// §
// §     When a cache receives a request that can be satisfied by a stored
// §     response and that stored response contains a Vary header field
// §     (Section 12.5.5 of [HTTP]), the cache MUST NOT use that stored
// §     response without revalidation unless all the presented request
// §     header fields nominated by that Vary field value match those fields
// §     in the original request (i.e., the request that caused the cached
// §     response to be stored).
func varyFields(header http.Header) []string {
	seen := make(map[string]bool)
	fields := make([]string, 0)
	for _, name := range GetListHeader(header, "Vary") {
		if name != "*" {
			name = http.CanonicalHeaderKey(name)
		}
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

// §     A stored response with a Vary header field value containing a member
// §     "*" always fails to match.
func variesOn(header http.Header, field string) bool {
	field = http.CanonicalHeaderKey(field)
	for _, name := range varyFields(header) {
		if name == "*" || name == field {
			return true
		}
	}
	return false
}

// §     The header fields from two requests are defined to match if and only
// §     if those in the first request can be transformed to those in the
// §     second request by applying any of the following:
// §
// §     *  adding or removing whitespace, where allowed in the header field's
// §        syntax
// §
// §     *  combining multiple header field lines with the same field name (see
// §        Section 5.2 of [HTTP])
//
// SelectingHeader returns the value of the request's selecting header
// field, normalized as described above: field lines are combined and
// whitespace around list members is removed.
func SelectingHeader(req *http.Request, field string) string {
	var value string
	for i, item := range GetListHeader(req.Header, field) {
		if i > 0 {
			value += ","
		}
		value += item
	}
	return value
}
