// Package rfc9211 models the Cache-Status HTTP response header field.
//
// §                The Cache-Status HTTP Response Header Field
// §
// §     To aid debugging, HTTP caches often append header fields to a
// §     response, explaining how they handled the request in an ad hoc
// §     manner.  This specification defines a standard mechanism to do so
// §     that is aligned with HTTP's caching model.
package rfc9211

// HeaderName is the name of the response header field.
const HeaderName = "Cache-Status"
