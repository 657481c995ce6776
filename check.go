package varyprobe

import (
	"fmt"
	"strings"

	cachekey "github.com/ericselin/vary-probe/pkg/cache-key"
)

type ViolationKind string

const (
	// The echoed value is not the Accept value that was sent.
	ViolationEchoMismatch ViolationKind = "echo-mismatch"
	// A repeated probe returned a different value than the probe before it.
	ViolationInconsistentRepeat ViolationKind = "inconsistent-repeat"
)

// Violation is a cache correctness problem found in a run.
type Violation struct {
	Step    int
	Kind    ViolationKind
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("step %d: %s: %s", v.Step, v.Kind, v.Message)
}

// Check looks for observations that a cache honoring Vary: Accept cannot
// produce. It does not compare hits and misses with the expectations, since
// caches are free not to store a response at all.
func Check(observations []Observation) []Violation {
	violations := make([]Violation, 0)
	keyer := cachekey.NewCacheKeyer()
	// last observation per URL
	last := make(map[string]Observation)
	for _, obs := range observations {
		if !IsEcho(obs.Request.MediaType, obs.Result.Accept) {
			violations = append(violations, Violation{
				Step:    obs.Step,
				Kind:    ViolationEchoMismatch,
				Message: fmt.Sprintf("sent %q, responder saw %q", obs.Request.MediaType, obs.Result.Accept),
			})
		}
		prefix := keyer.GetKeyPrefixOf(obs.Key)
		if prev, ok := last[prefix]; ok && prev.Key == obs.Key && prev.Result.Accept != obs.Result.Accept {
			violations = append(violations, Violation{
				Step: obs.Step,
				Kind: ViolationInconsistentRepeat,
				Message: fmt.Sprintf("step %d returned %q for the same request, now %q",
					prev.Step, prev.Result.Accept, obs.Result.Accept),
			})
		}
		last[prefix] = obs
	}
	return violations
}

// IsEcho reports whether echoed is what a responder receiving sent would report.
// Whitespace around list members is not significant. For HTML, only the
// first member must match, since browsers substitute their own navigation
// Accept value when a page is loaded.
func IsEcho(sent, echoed string) bool {
	a, b := acceptList(sent), acceptList(echoed)
	if IsHTML(sent) {
		return len(b) > 0 && a[0] == b[0]
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func acceptList(value string) []string {
	members := make([]string, 0)
	for _, member := range strings.Split(value, ",") {
		if member = strings.TrimSpace(member); member != "" {
			members = append(members, strings.ReplaceAll(member, " ", ""))
		}
	}
	return members
}
