package rfc9111

import (
	"net/http"
	"strings"
	"time"
)

// §  5.2.  Cache-Control
// §
// §     The "Cache-Control" header field is used to list directives for
// §     caches along the request/response chain.  Cache directives are
// §     unidirectional, in that the presence of a directive in a request
// §     does not imply that the same directive is present or copied in the
// §     response.
// §
// §     Cache directives are identified by a token, to be compared case-
// §     insensitively, and have an optional argument that can use both token
// §     and quoted-string syntax.
type CacheControl struct {
	m map[string]string
}

// Get returns the argument of the directive (empty if it has none),
// and whether the directive is present.
func (c CacheControl) Get(directive string) (string, bool) {
	val, ok := c.m[strings.ToLower(directive)]
	return val, ok
}

// MaxAge returns the s-maxage directive if present, otherwise max-age.
func (c CacheControl) MaxAge() (time.Duration, bool) {
	for _, directive := range []string{"s-maxage", "max-age"} {
		if val, ok := c.Get(directive); ok {
			if age, err := deltaSeconds(val); err == nil {
				return age, true
			}
		}
	}
	return 0, false
}

// §  3.  Storing Responses in Caches
// §
// §     A cache MUST NOT store a response to a request unless:
// §     [...]
// §     *  if the cache is shared: the private response directive is either
// §        not present or allows a shared cache to store a modified response;
// §     [...]
// §     *  the no-store cache directive is not present in the response
//
// SharedStorable reports whether the directives allow a shared cache to
// store the response. Other storing conditions (method, status) are not
// considered.
func (c CacheControl) SharedStorable() bool {
	if _, ok := c.Get("no-store"); ok {
		return false
	}
	if val, ok := c.Get("private"); ok && val == "" {
		return false
	}
	return true
}

// ParseCacheControl parses the Cache-Control field lines of the header.
// Directive names are lower-cased and quoted arguments unquoted.
func ParseCacheControl(header http.Header) CacheControl {
	m := make(map[string]string)
	for _, directive := range GetListHeader(header, "Cache-Control") {
		name, val, _ := strings.Cut(directive, "=")
		val = strings.TrimSpace(val)
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			val = val[1 : len(val)-1]
		}
		m[strings.ToLower(strings.TrimSpace(name))] = val
	}
	return CacheControl{m}
}
