// Package varyprobe checks whether HTTP caches honor the Vary response header
// for responses that differ only by the Accept request header.
//
// A Prober sends GET requests with a given Accept value to one URL (optionally
// on another host) and decodes the Accept value an echo responder reports
// back. Sequences of probes, run strictly one after the other, exercise the
// cases where a cache should serve a stored variant and where it should not.
package varyprobe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	cachekey "github.com/ericselin/vary-probe/pkg/cache-key"
	serializer "github.com/ericselin/vary-probe/pkg/response-serializer"
	"github.com/ericselin/vary-probe/rfc9111"
	"github.com/ericselin/vary-probe/rfc9211"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ProbeRequest is one probe: the Accept value to send and, optionally, the
// host to send it to instead of the current URL's host.
type ProbeRequest struct {
	MediaType  string
	TargetHost string
}

// ProbeResult is the Accept value the responder reports having received.
type ProbeResult struct {
	Accept string `json:"accept"`
}

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

type Config struct {
	// URL every probe is sent to. Scheme, path and query are kept for probes
	// to another host; only the authority is replaced.
	CurrentURL url.URL
	// Client used for the requests. A client without timeout is used if nil:
	// a hung probe stalls the run rather than altering cache state by retrying.
	Client Doer
	// Extractor for HTML echo documents. x/net/html is used if nil.
	Extractor TextExtractor
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

type Prober struct {
	currentURL url.URL
	client     Doer
	decoder    *Decoder
	keyer      cachekey.CacheKeyer
	log        zerolog.Logger
	now        func() time.Time
}

// Observation is everything a single probe saw that says something about the
// caches between the prober and the responder.
type Observation struct {
	// Position of the probe in its sequence, and the step's name and expectation.
	// These are set by Run.
	Step   int
	Name   string
	Expect Expectation

	Request    ProbeRequest
	Result     ProbeResult
	URL        string
	StatusCode int
	// Age header value, if HasAge.
	Age    time.Duration
	HasAge bool
	// How much older than its Date header the response was on arrival.
	ApparentAge time.Duration
	// Cache-Status members, closest to the origin first.
	CacheStatus []rfc9211.CacheStatus
	// Header fields the response's Vary header nominates.
	Vary           []string
	VariesOnAccept bool
	CacheControl   rfc9111.CacheControl
	// Key identifies URL and Accept value of the probe.
	Key string
	// VaryKey is the key a cache honoring the response's Vary header stores it under.
	VaryKey     string
	RequestedAt time.Time
	ReceivedAt  time.Time
	// Stored is the serialized exchange (see package serializer).
	Stored []byte
}

// NewProber creates a prober for the given configuration.
func NewProber(config Config) *Prober {
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	client := config.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Prober{
		currentURL: config.CurrentURL,
		client:     client,
		decoder:    NewDecoder(config.Extractor),
		keyer:      cachekey.NewCacheKeyer(),
		log:        logger.With().Str("url", config.CurrentURL.String()).Logger(),
		now:        time.Now,
	}
}

// CurrentURL returns the URL probes are sent to.
func (p *Prober) CurrentURL() url.URL {
	return p.currentURL
}

// Probe sends one request and returns the decoded echo.
func (p *Prober) Probe(ctx context.Context, req ProbeRequest) (ProbeResult, error) {
	obs, err := p.Observe(ctx, req)
	return obs.Result, err
}

// Observe sends one request and returns the decoded echo together with the
// cache-related signals of the response. Errors are *NetworkError or *DecodeError;
// nothing is retried.
func (p *Prober) Observe(ctx context.Context, req ProbeRequest) (Observation, error) {
	target := p.targetURL(req.TargetHost)
	obs := Observation{Request: req, URL: target.String()}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, obs.URL, nil)
	if err != nil {
		return obs, fmt.Errorf("create probe request: %w", err)
	}
	httpReq.Header.Set("Accept", req.MediaType)
	obs.Key = p.keyer.AddSelectingKeys(p.keyer.GetKeyPrefix(httpReq), httpReq, "Accept")

	p.log.Trace().Str("target", obs.URL).Str("accept", req.MediaType).Msg("Sending probe")
	obs.RequestedAt = p.now()
	res, err := p.client.Do(httpReq)
	if err != nil {
		return obs, &NetworkError{URL: obs.URL, Err: err}
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return obs, &NetworkError{URL: obs.URL, Err: err}
	}
	obs.ReceivedAt = p.now()
	obs.StatusCode = res.StatusCode
	if res.Request == nil {
		res.Request = httpReq
	}

	obs.Age, obs.HasAge = rfc9111.GetAge(res)
	obs.ApparentAge = rfc9111.ApparentAge(res, obs.ReceivedAt)
	obs.Vary = rfc9111.VaryFields(res)
	obs.VariesOnAccept = rfc9111.VariesOn(res, "Accept")
	obs.CacheControl = rfc9111.ParseCacheControl(res.Header)
	obs.VaryKey = p.keyer.AddVaryKeys(p.keyer.GetKeyPrefix(httpReq), httpReq, res)
	if obs.CacheStatus, err = rfc9211.Parse(res.Header); err != nil {
		p.log.Debug().Err(err).Msg("Could not parse Cache-Status")
	}
	if obs.Stored, err = serializer.StoredResponseToBytes(serializer.TimedResponse{
		Response:     res,
		Body:         body,
		RequestTime:  obs.RequestedAt,
		ResponseTime: obs.ReceivedAt,
	}); err != nil {
		p.log.Debug().Err(err).Msg("Could not serialize probe response")
	}
	p.log.Trace().
		Int("status", obs.StatusCode).
		Strs("vary", obs.Vary).
		Str("varyKey", obs.VaryKey).
		Msgf("Received %d bytes", len(body))

	obs.Result, err = p.decoder.decodeBody(body, req.MediaType, res.StatusCode)
	return obs, err
}

// targetURL returns the current URL, with the authority replaced if host is set.
func (p *Prober) targetURL(host string) *url.URL {
	u := p.currentURL
	if host != "" {
		u.Host = host
		u.User = nil
	}
	return &u
}

// ServedFromCache tells whether the response came out of a cache, and whether
// that could be determined at all. The Cache-Status member closest to the
// prober decides if present, otherwise an Age header means a cache hit.
func (o Observation) ServedFromCache() (hit bool, known bool) {
	if cs, ok := rfc9211.Closest(o.CacheStatus); ok && cs.Status != "" {
		return cs.IsHit(), true
	}
	if o.HasAge {
		return true, true
	}
	return false, false
}

// Observed returns the outcome the response signals, or OutcomeUnknown.
func (o Observation) Observed() Outcome {
	hit, known := o.ServedFromCache()
	switch {
	case !known:
		return OutcomeUnknown
	case hit:
		return OutcomeHit
	default:
		return OutcomeMiss
	}
}
