package varyprobe

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	acceptecho "github.com/ericselin/vary-probe/pkg/accept-echo"
	cachekey "github.com/ericselin/vary-probe/pkg/cache-key"
	"github.com/ericselin/vary-probe/rfc9211"

	"github.com/rs/zerolog"
)

// handlerTransport serves every request with the handler, whatever the host.
type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rr := httptest.NewRecorder()
	t.h.ServeHTTP(rr, req)
	res := rr.Result()
	res.Request = req
	return res, nil
}

func echoTransport() handlerTransport {
	nop := zerolog.Nop()
	return handlerTransport{h: acceptecho.New(acceptecho.Config{Logger: &nop})}
}

type failingTransport struct{}

var errConnectionRefused = errors.New("connection refused")

func (failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return nil, errConnectionRefused
}

// oneVariantCache caches the way most real caches do: Vary is honored when
// selecting a stored response, but only the latest response per URL is kept.
type oneVariantCache struct {
	next   http.RoundTripper
	keyer  cachekey.CacheKeyer
	mu     sync.Mutex
	stored map[string]storedVariant
	// number of requests that reached next
	forwarded int
}

type storedVariant struct {
	key    string
	status int
	header http.Header
	body   []byte
}

func newOneVariantCache(next http.RoundTripper) *oneVariantCache {
	return &oneVariantCache{
		next:   next,
		keyer:  cachekey.NewCacheKeyer(),
		stored: make(map[string]storedVariant),
	}
}

func (c *oneVariantCache) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := c.keyer.GetKeyPrefix(req)
	reason := rfc9211.FwdReasonUriMiss
	if v, ok := c.stored[prefix]; ok {
		if c.keyer.AddVaryKeys(prefix, req, &http.Response{Header: v.header}) == v.key {
			cs := rfc9211.CacheStatus{Cache: "TestCache"}
			cs.Hit()
			return v.response(req, cs), nil
		}
		reason = rfc9211.FwdReasonVaryMiss
	}

	c.forwarded++
	res, err := c.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, err
	}
	v := storedVariant{
		key:    c.keyer.AddVaryKeys(prefix, req, res),
		status: res.StatusCode,
		header: res.Header.Clone(),
		body:   body,
	}
	cs := rfc9211.CacheStatus{Cache: "TestCache"}
	cs.Forward(reason)
	if res.StatusCode == http.StatusOK {
		c.stored[prefix] = v
		cs.Stored = true
	}
	return v.response(req, cs), nil
}

func (v storedVariant) response(req *http.Request, cs rfc9211.CacheStatus) *http.Response {
	h := v.header.Clone()
	h.Set(rfc9211.HeaderName, cs.String())
	if cs.IsHit() {
		h.Set("Age", "0")
	}
	return &http.Response{
		StatusCode:    v.status,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(v.body)),
		ContentLength: int64(len(v.body)),
		Request:       req,
	}
}
