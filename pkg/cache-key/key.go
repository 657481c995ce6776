package cachekey

import (
	"net/http"
	"strings"

	"github.com/ericselin/vary-probe/rfc9111"
)

const (
	methodSeparator = ":"
	varySeparator   = "\t"
	headerSeparator = "\n"
)

// CacheKeyer derives the keys a shared cache would file probe responses under.
// The key prefix identifies the URL (every variant of a resource shares it),
// and the vary part identifies a single stored variant.
type CacheKeyer struct{}

func NewCacheKeyer() CacheKeyer {
	return CacheKeyer{}
}

// GetKeyPrefix returns the cache key for a request without the vary headers (i.e. a key prefix).
// The returned key is suitable for finding all stored response variants for a particular request.
// Unlike a cache serving a single origin, the prefix includes scheme and host,
// since probes are sent to more than one host.
func (c CacheKeyer) GetKeyPrefix(r *http.Request) string {
	return r.Method + methodSeparator + r.URL.Scheme + "://" + r.URL.Host + r.URL.RequestURI() + varySeparator
}

// AddVaryKeys returns the full cache key (including vary headers) based on a previously generated
// cache key prefix and the request and response involved.
func (c CacheKeyer) AddVaryKeys(prefix string, req *http.Request, res *http.Response) string {
	return c.AddSelectingKeys(prefix, req, rfc9111.VaryFields(res)...)
}

// AddSelectingKeys adds the given request header fields to the key prefix,
// whether or not a response nominated them.
func (c CacheKeyer) AddSelectingKeys(prefix string, req *http.Request, fields ...string) string {
	key := prefix
	for _, name := range fields {
		if name == "*" {
			continue
		}
		if !rfc9111.FieldAbsent(req.Header, name) {
			key = key + headerSeparator + strings.ToLower(name) + ": " + rfc9111.SelectingHeader(req, name)
		}
	}
	return key
}

// GetKeyPrefixOf returns the prefix part of a full key.
func (c CacheKeyer) GetKeyPrefixOf(key string) string {
	prefix, _, _ := strings.Cut(key, varySeparator)
	return prefix + varySeparator
}
