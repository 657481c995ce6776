package main

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"

	varyprobe "github.com/ericselin/vary-probe"
	"github.com/ericselin/vary-probe/history"
	acceptecho "github.com/ericselin/vary-probe/pkg/accept-echo"

	"github.com/rs/zerolog"
)

func TestReporterRecordsRun(t *testing.T) {
	nop := zerolog.Nop()
	server := httptest.NewServer(acceptecho.New(acceptecho.Config{Logger: &nop}))
	defer server.Close()
	u, err := url.Parse(server.URL + "/echo-accept-header-w-vary")
	if err != nil {
		t.Fatal(err)
	}

	store := history.NewMemHistory()
	seq := varyprobe.BasicSequence()
	r := newReporter(nop, store, "run-1", seq)
	p := varyprobe.NewProber(varyprobe.Config{CurrentURL: *u, Logger: &nop})
	if err := varyprobe.Run(context.Background(), p, seq, "", r.observe); err != nil {
		t.Fatal(err)
	}

	records, err := store.Run("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(seq.Steps) {
		t.Fatalf("Expected %d records, got %d", len(seq.Steps), len(records))
	}
	for i, rec := range records {
		if rec.Step != i || rec.MediaType != seq.Steps[i].MediaType || rec.Accept != seq.Steps[i].MediaType {
			t.Fatalf("Unexpected record %+v", rec)
		}
		if rec.Observed != string(varyprobe.OutcomeUnknown) || len(rec.Bytes) == 0 {
			t.Fatalf("Unexpected record %+v", rec)
		}
	}
	if r.warnedVary || r.warnedStore {
		t.Fatal("Response is cacheable and varies on Accept, no warning expected")
	}
	if violations := varyprobe.Check(r.observations); len(violations) != 0 {
		t.Fatalf("Unexpected violations: %v", violations)
	}
}

func TestReporterRecordsFailure(t *testing.T) {
	nop := zerolog.Nop()
	store := history.NewMemHistory()
	seq := varyprobe.BasicSequence()
	r := newReporter(nop, store, "run-2", seq)
	r.fail(&varyprobe.NetworkError{URL: "http://localhost:1/x", Err: context.DeadlineExceeded})

	records, err := store.Run("run-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Step != 0 || records[0].URL != "http://localhost:1/x" || records[0].Error == "" {
		t.Fatalf("Unexpected records %+v", records)
	}
	runs, err := store.Runs(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || !runs[0].Failed {
		t.Fatalf("Unexpected runs %+v", runs)
	}
}

func TestHostOf(t *testing.T) {
	if got := hostOf("http://localhost:8880/x"); got != "localhost:8880" {
		t.Fatalf("hostOf returned %q", got)
	}
}
