package rfc9211

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// §  2.  The Cache-Status HTTP Response Header Field
// §
// §     The Cache-Status HTTP response header field indicates caches' handling
// §     of the request corresponding to the response it occurs within.
// §
// §     Its value is a List (Section 3.1 of [STRUCTURED-FIELDS]):
// §
// §     Cache-Status   = sf-list
// §
// §     Each member of the list represents a cache that has handled the
// §     request.  The first member of the list represents the cache closest
// §     to the origin server, and the last member of the list represents the
// §     cache closest to the user (possibly including the user agent's cache
// §     itself if it appends a value).
type CacheStatus struct {
	// Cache identifies the cache, usually by its hostname.
	Cache string
	// Status is either "hit" or "fwd". It is empty if neither parameter was sent.
	Status Status
	// FwdReason is set for forwarded requests.
	FwdReason FwdReason
	// FwdStatus is the status code the next hop cache or origin returned, if known.
	FwdStatus int
	// TimeToLive is the remaining freshness lifetime in seconds. HasTTL tells if it was sent.
	TimeToLive int
	HasTTL     bool
	Stored     bool
	Collapsed  bool
	Key        string
	Detail     string
}

type Status string

const (
	StatusHit Status = "hit"
	StatusFwd Status = "fwd"
)

// §  2.2.  The fwd Parameter
type FwdReason string

const (
	// The cache was configured to not handle this request.
	FwdReasonBypass FwdReason = "bypass"
	// The request method's semantics require the request to be
	// forwarded.
	FwdReasonMethod FwdReason = "method"
	// The cache did not contain any responses that matched the
	// request URI.
	FwdReasonUriMiss FwdReason = "uri-miss"
	// The cache contained a response that matched the request
	// URI, but it could not select a response based upon this request's
	// header fields and stored Vary header fields.
	FwdReasonVaryMiss FwdReason = "vary-miss"
	// The cache did not contain any responses that could be used to
	// satisfy this request (to be used when an implementation cannot
	// distinguish between uri-miss and vary-miss).
	FwdReasonMiss FwdReason = "miss"
	// The cache was able to select a fresh response for the
	// request, but the request's semantics (e.g., Cache-Control request
	// directives) did not allow its use.
	FwdReasonRequest FwdReason = "request"
	// The cache was able to select a response for the request, but
	// it was stale.
	FwdReasonStale FwdReason = "stale"
	// The cache was able to select a partial response for the
	// request, but it did not contain all of the requested ranges (or
	// the request was for the complete response).
	FwdReasonPartial FwdReason = "partial"
)

func (cs *CacheStatus) Hit() {
	cs.Status = StatusHit
	cs.FwdReason = ""
}

func (cs *CacheStatus) Forward(reason FwdReason) {
	cs.Status = StatusFwd
	cs.FwdReason = reason
}

// IsHit reports whether the cache served the response without going forward.
func (cs CacheStatus) IsHit() bool {
	return cs.Status == StatusHit
}

// String serializes the member the way it appears in the header field.
func (cs CacheStatus) String() string {
	var b strings.Builder
	b.WriteString(cs.Cache)
	switch cs.Status {
	case StatusHit:
		b.WriteString("; hit")
	case StatusFwd:
		fmt.Fprintf(&b, "; fwd=%s", cs.FwdReason)
		if cs.FwdStatus != 0 {
			fmt.Fprintf(&b, "; fwd-status=%d", cs.FwdStatus)
		}
	}
	if cs.HasTTL {
		fmt.Fprintf(&b, "; ttl=%d", cs.TimeToLive)
	}
	if cs.Stored {
		b.WriteString("; stored")
	}
	if cs.Collapsed {
		b.WriteString("; collapsed")
	}
	if cs.Key != "" {
		fmt.Fprintf(&b, "; key=%s", strconv.Quote(cs.Key))
	}
	if cs.Detail != "" {
		fmt.Fprintf(&b, "; detail=%s", strconv.Quote(cs.Detail))
	}
	return b.String()
}

// Parse parses all Cache-Status field lines of the header, in order from the
// cache closest to the origin to the cache closest to the user.
func Parse(header http.Header) ([]CacheStatus, error) {
	statuses := make([]CacheStatus, 0)
	for _, line := range header.Values(HeaderName) {
		for _, member := range splitOutsideQuotes(line, ',') {
			if strings.TrimSpace(member) == "" {
				continue
			}
			cs, err := parseMember(member)
			if err != nil {
				return statuses, err
			}
			statuses = append(statuses, cs)
		}
	}
	return statuses, nil
}

// Closest returns the member added by the cache closest to the user, if any.
func Closest(statuses []CacheStatus) (CacheStatus, bool) {
	if len(statuses) == 0 {
		return CacheStatus{}, false
	}
	return statuses[len(statuses)-1], true
}

func parseMember(member string) (CacheStatus, error) {
	parts := splitOutsideQuotes(member, ';')
	cs := CacheStatus{Cache: unquote(strings.TrimSpace(parts[0]))}
	if cs.Cache == "" {
		return cs, fmt.Errorf("cache status member %q has no cache identifier", member)
	}
	for _, param := range parts[1:] {
		name, value, hasValue := strings.Cut(strings.TrimSpace(param), "=")
		name = strings.ToLower(strings.TrimSpace(name))
		value = unquote(strings.TrimSpace(value))
		switch name {
		// §  2.1.  The hit Parameter
		case "hit":
			cs.Hit()
		case "fwd":
			cs.Forward(FwdReason(value))
		case "fwd-status":
			n, err := strconv.Atoi(value)
			if err != nil {
				return cs, fmt.Errorf("invalid fwd-status %q: %w", value, err)
			}
			cs.FwdStatus = n
		case "ttl":
			n, err := strconv.Atoi(value)
			if err != nil {
				return cs, fmt.Errorf("invalid ttl %q: %w", value, err)
			}
			cs.TimeToLive = n
			cs.HasTTL = true
		// bare boolean parameters are true
		case "stored":
			cs.Stored = !hasValue || value == "?1"
		case "collapsed":
			cs.Collapsed = !hasValue || value == "?1"
		case "key":
			cs.Key = value
		case "detail":
			cs.Detail = value
		}
	}
	return cs, nil
}

func splitOutsideQuotes(s string, sep rune) []string {
	parts := make([]string, 0)
	inQuotes := false
	escaped := false
	start := 0
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inQuotes:
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == sep && !inQuotes:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}
