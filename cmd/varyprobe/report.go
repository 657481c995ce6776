package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	varyprobe "github.com/ericselin/vary-probe"
	"github.com/ericselin/vary-probe/history"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// reporter logs observations as they arrive and records them in the history.
type reporter struct {
	log          zerolog.Logger
	store        history.HistoryProvider
	runID        string
	seq          varyprobe.ProbeSequence
	observations []varyprobe.Observation
	warnedVary   bool
	warnedStore  bool
}

func newReporter(logger zerolog.Logger, store history.HistoryProvider, runID string, seq varyprobe.ProbeSequence) *reporter {
	return &reporter{log: logger, store: store, runID: runID, seq: seq}
}

func (r *reporter) observe(obs varyprobe.Observation) {
	r.observations = append(r.observations, obs)
	if !r.warnedVary && !obs.VariesOnAccept {
		r.warnedVary = true
		r.log.Warn().Strs("vary", obs.Vary).
			Msg("Response does not vary on Accept; caches may serve any stored representation")
	}

	if !r.warnedStore && !obs.CacheControl.SharedStorable() {
		r.warnedStore = true
		r.log.Warn().Int("step", obs.Step).
			Msg("Response is not storable by shared caches")
	}

	ev := r.log.Info().
		Int("step", obs.Step).
		Str("name", obs.Name).
		Str("host", hostOf(obs.URL)).
		Str("sent", obs.Request.MediaType).
		Str("expect", obs.Expect.String()).
		Str("observed", string(obs.Observed())).
		Int("status", obs.StatusCode)
	if obs.HasAge {
		ev = ev.Dur("age", obs.Age)
	}
	// Date has one second resolution
	if obs.ApparentAge > 2*time.Second {
		ev = ev.Dur("apparentAge", obs.ApparentAge)
	}
	if len(obs.CacheStatus) > 0 {
		statuses := make([]string, len(obs.CacheStatus))
		for i, cs := range obs.CacheStatus {
			statuses[i] = cs.String()
		}
		ev = ev.Strs("cacheStatus", statuses)
	}
	ev.Msg(obs.Result.Accept)

	r.put(history.Record{
		RunID:       r.runID,
		Sequence:    r.seq.Name,
		Step:        obs.Step,
		Name:        obs.Name,
		URL:         obs.URL,
		MediaType:   obs.Request.MediaType,
		Accept:      obs.Result.Accept,
		Expected:    string(obs.Expect.Outcome),
		Observed:    string(obs.Observed()),
		RequestedAt: obs.RequestedAt,
		ReceivedAt:  obs.ReceivedAt,
		Bytes:       obs.Stored,
	})
}

// fail records the error that ended the run at the step after the last observation.
func (r *reporter) fail(err error) {
	step := len(r.observations)
	if step >= len(r.seq.Steps) {
		return
	}
	rec := history.Record{
		RunID:     r.runID,
		Sequence:  r.seq.Name,
		Step:      step,
		Name:      r.seq.Steps[step].Name,
		MediaType: r.seq.Steps[step].MediaType,
		Expected:  string(r.seq.Steps[step].Expect.Outcome),
		Observed:  string(varyprobe.OutcomeUnknown),
		Error:     err.Error(),
	}
	var netErr *varyprobe.NetworkError
	if errors.As(err, &netErr) {
		rec.URL = netErr.URL
	}
	r.put(rec)
}

func (r *reporter) put(rec history.Record) {
	if r.store == nil {
		return
	}
	if err := r.store.Put(rec); err != nil {
		r.log.Error().Err(err).Int("step", rec.Step).Msg("Could not record probe")
	}
}

func listRuns(store history.HistoryProvider, limit int) error {
	runs, err := store.Runs(limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		log.Info().
			Str("run", run.RunID).
			Str("sequence", run.Sequence).
			Time("started", run.StartedAt).
			Int("steps", run.Steps).
			Bool("failed", run.Failed).
			Msg(run.URL)
	}
	return nil
}

func showRun(store history.HistoryProvider, runID string) error {
	records, err := store.Run(runID)
	if err != nil {
		return err
	}
	for _, rec := range records {
		ev := log.Info().
			Int("step", rec.Step).
			Str("name", rec.Name).
			Str("host", hostOf(rec.URL)).
			Str("sent", rec.MediaType).
			Str("expect", rec.Expected).
			Str("observed", rec.Observed)
		if rec.Error != "" {
			ev = ev.Str("error", rec.Error)
		}
		ev.Msg(rec.Accept)
		if verbosityTraceFlag && len(rec.Bytes) > 0 {
			fmt.Fprintf(os.Stdout, "%s\n\n", strings.TrimSpace(string(rec.Bytes)))
		}
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
