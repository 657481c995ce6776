// Package rfc9111 contains the parts of HTTP Caching (RFC 9111) that a cache
// observer needs in order to interpret what a cache did with a response.
// The RFC text is quoted next to the code implementing it.
package rfc9111

import (
	"net/http"
	"time"
)

// VaryFields returns the header field names listed in the response's Vary
// header, in canonical form. A "*" member is returned as is.
func VaryFields(res *http.Response) []string {
	if res == nil {
		return nil
	}
	return varyFields(res.Header)
}

// VariesOn reports whether the response lists the given request header field
// in its Vary header (or varies on everything with "*").
func VariesOn(res *http.Response, field string) bool {
	if res == nil {
		return false
	}
	return variesOn(res.Header, field)
}

// GetAge returns the value of the Age header and whether it was present and valid.
func GetAge(res *http.Response) (time.Duration, bool) {
	if res == nil {
		return 0, false
	}
	return getAge(res)
}

// ApparentAge returns how much older than the Date header the response was at
// the given time of reception. It is zero when the Date header is missing or
// invalid, or when the clocks disagree the other way.
func ApparentAge(res *http.Response, receivedAt time.Time) time.Duration {
	if res == nil {
		return 0
	}
	return apparentAge(res, receivedAt)
}
