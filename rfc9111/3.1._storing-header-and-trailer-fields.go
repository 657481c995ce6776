package rfc9111

import (
	"net/http"
	"strings"
)

// GetListHeader returns the members of a comma-separated list header field,
// combining all field lines with that name. Empty members are dropped.
//
// From the HTTP specification (RFC9110), section 5.6.1.2:
//
// §     A recipient MUST parse and ignore a reasonable number of empty list
// §     elements: enough to handle common mistakes by senders that merge
// §     values, but not so much that they could be used as a denial-of-
// §     service mechanism.
func GetListHeader(header http.Header, field string) []string {
	list := make([]string, 0)
	for _, hdr := range header.Values(field) {
		for _, item := range strings.Split(hdr, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}

// FieldAbsent reports whether the header field is not present at all.
// A field that is present with an empty value is not absent.
func FieldAbsent(header http.Header, field string) bool {
	_, ok := header[http.CanonicalHeaderKey(field)]
	return !ok
}
