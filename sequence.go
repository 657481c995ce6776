package varyprobe

import (
	"context"
	"fmt"
	"net"
	"net/url"
)

// Outcome is a cache outcome for one probe.
type Outcome string

const (
	OutcomeHit     Outcome = "hit"
	OutcomeMiss    Outcome = "miss"
	OutcomeUnknown Outcome = "unknown"
)

// Expectation is what a step's probe should see from a cache, with the reason
// in words. It is printed next to the result, not enforced.
type Expectation struct {
	Outcome Outcome
	Note    string
}

func (e Expectation) String() string {
	if e.Note == "" {
		return string(e.Outcome)
	}
	return string(e.Outcome) + " (" + e.Note + ")"
}

// Step is one probe of a sequence.
type Step struct {
	Name      string
	MediaType string
	// Alternate sends the probe to the alternate host instead of the current URL's host.
	Alternate bool
	Expect    Expectation
}

// ProbeSequence is an ordered list of probes against the same URL.
type ProbeSequence struct {
	Name  string
	Steps []Step
}

const (
	// DefaultPageAccept is the Accept value a browser typically sends when navigating to a page.
	DefaultPageAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// HALAccept prefers HAL but accepts plain JSON.
	HALAccept = "application/hal+json,application/json;q=0.9"

	JSONAccept = "application/json"
)

const (
	SequenceVary  = "vary"
	SequenceBasic = "basic"
)

// VarySequence returns the sequence exercising the Vary: Accept cases against
// one URL. Step 0 is the page load a browser would do before running probes;
// pageAccept is the Accept value of that load (DefaultPageAccept if empty).
func VarySequence(pageAccept string) ProbeSequence {
	if pageAccept == "" {
		pageAccept = DefaultPageAccept
	}
	return ProbeSequence{
		Name: SequenceVary,
		Steps: []Step{
			{
				Name:      "page load",
				MediaType: pageAccept,
				Expect:    Expectation{OutcomeMiss, "page load populates the cache"},
			},
			{
				Name:      "page media type",
				MediaType: pageAccept,
				Expect:    Expectation{OutcomeHit, "same media type as the page load"},
			},
			{
				Name:      "json on alternate host",
				MediaType: JSONAccept,
				Alternate: true,
				Expect:    Expectation{OutcomeMiss, "different host is a new cache key"},
			},
			{
				Name:      "json on alternate host again",
				MediaType: JSONAccept,
				Alternate: true,
				Expect:    Expectation{OutcomeHit, "repeat of the previous request"},
			},
			{
				Name:      "hal list",
				MediaType: HALAccept,
				Expect:    Expectation{OutcomeMiss, "new Accept value is a new Vary variant"},
			},
			{
				Name:      "hal list again",
				MediaType: HALAccept,
				Expect:    Expectation{OutcomeHit, "repeat of the previous request"},
			},
			{
				Name:      "json",
				MediaType: JSONAccept,
				Expect:    Expectation{OutcomeMiss, "most caches keep one variant per URL regardless of Vary"},
			},
			{
				Name:      "json again",
				MediaType: JSONAccept,
				Expect:    Expectation{OutcomeHit, "repeat of the previous request"},
			},
			{
				Name:      "page media type again",
				MediaType: pageAccept,
				Expect:    Expectation{OutcomeMiss, "most caches keep one variant per URL regardless of Vary"},
			},
		},
	}
}

// BasicSequence returns the JSON-only sequence: a JSON request, a HAL
// request and the JSON request again, all on the current URL. If any cache
// ignores Vary, the echoes will not match what was sent.
func BasicSequence() ProbeSequence {
	return ProbeSequence{
		Name: SequenceBasic,
		Steps: []Step{
			{
				Name:      "json",
				MediaType: JSONAccept,
				Expect:    Expectation{OutcomeMiss, "the page itself was loaded as HTML"},
			},
			{
				Name:      "hal",
				MediaType: "application/hal+json",
				Expect:    Expectation{OutcomeMiss, "new Accept value is a new Vary variant"},
			},
			{
				Name:      "json again",
				MediaType: JSONAccept,
				Expect:    Expectation{OutcomeMiss, "most caches keep one variant per URL regardless of Vary"},
			},
		},
	}
}

// UsesAlternate reports whether any step targets the alternate host.
func (s ProbeSequence) UsesAlternate() bool {
	for _, step := range s.Steps {
		if step.Alternate {
			return true
		}
	}
	return false
}

// Requests resolves the steps to probe requests.
func (s ProbeSequence) Requests(altHost string) ([]ProbeRequest, error) {
	if s.UsesAlternate() && altHost == "" {
		return nil, fmt.Errorf("sequence %q needs an alternate host", s.Name)
	}
	reqs := make([]ProbeRequest, len(s.Steps))
	for i, step := range s.Steps {
		reqs[i] = ProbeRequest{MediaType: step.MediaType}
		if step.Alternate {
			reqs[i].TargetHost = altHost
		}
	}
	return reqs, nil
}

// DefaultAltHost returns a different name for the same local server:
// 127.0.0.1 for localhost and the other way round, keeping the port.
// It returns an empty string for any other host.
func DefaultAltHost(u url.URL) string {
	host, port := u.Hostname(), u.Port()
	var alt string
	switch host {
	case "localhost":
		alt = "127.0.0.1"
	case "127.0.0.1":
		alt = "localhost"
	default:
		return ""
	}
	if port == "" {
		return alt
	}
	return net.JoinHostPort(alt, port)
}

// Run sends the probes of the sequence one at a time, waiting for each to
// complete before sending the next, and calls fn with every observation in
// order. The first failure stops the run: later probes are not sent, but
// observations already passed to fn stay valid.
//
// If altHost is empty and the sequence needs one, DefaultAltHost is used.
func Run(ctx context.Context, p *Prober, seq ProbeSequence, altHost string, fn func(Observation)) error {
	if altHost == "" && seq.UsesAlternate() {
		altHost = DefaultAltHost(p.CurrentURL())
		if altHost != "" {
			p.log.Debug().Str("altHost", altHost).Msg("Using default alternate host")
		}
	}
	reqs, err := seq.Requests(altHost)
	if err != nil {
		return err
	}
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return err
		}
		obs, err := p.Observe(ctx, req)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, seq.Steps[i].Name, err)
		}
		obs.Step = i
		obs.Name = seq.Steps[i].Name
		obs.Expect = seq.Steps[i].Expect
		fn(obs)
	}
	return nil
}
